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


// Package schema defines the Source interface through which the engine
// obtains the current set of document schemas, plus a YAML file-backed
// implementation and a static in-memory implementation for tests.
//
// The schema service itself is an external collaborator; the engine only
// consumes its output to rebuild the field catalog.
package schema
