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

// Package ai provides abstractions for the language-model refinement
// service used when heuristic query analysis falls below the confidence
// threshold.
//
// The package defines a single interface, Refiner, which takes the raw
// query text, the heuristic draft analysis, and the canonical field
// vocabulary, and returns an improved analysis. Callers treat refinement
// as strictly optional: any error from a Refiner means "keep the draft",
// never "fail the query".
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors (openai.NewRefiner) return the interface type to
// enforce abstraction. Test utility constructors (mock.NewMockRefiner)
// return concrete types to enable behavior injection and call-count
// assertions.
package ai
