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

// Package search defines the executor boundary and the translation from
// query analyses to search-engine-ready structured queries.
//
// The Executor interface is the seam to the actual search backend; this
// package ships an in-memory implementation used by tests and local
// development. BuildStructuredQuery performs the per-request translation:
// canonical fields expand to the concrete member fields of the schemas in
// scope, and relative date periods anchor to the execution time, never to
// the time the analysis was produced or cached.
package search
