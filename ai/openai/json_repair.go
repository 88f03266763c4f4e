// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import "regexp"

// Small models occasionally drop the opening quote of an object key
// (`, intent":` instead of `, "intent":`) or leave a trailing comma
// before a closing brace. Both break encoding/json, so patch them up
// before parsing.
var (
	reUnquotedKey   = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z_ ]*)":`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// repairJSON attempts to fix common JSON formatting issues from LLM responses.
func repairJSON(s string) string {
	s = reUnquotedKey.ReplaceAllString(s, `$1"$2":`)
	s = reTrailingComma.ReplaceAllString(s, `$1`)
	return s
}
