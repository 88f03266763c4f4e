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


// Package analyze implements the deterministic query analyzer.
//
// Analyze is a pure function of the query text, the request scope, and one
// field catalog snapshot: it detects intent through an ordered rule set,
// extracts numeric, date and status filters, resolves implied field names
// through the catalog, and scores its own confidence. It performs no I/O
// and never fails; in the worst case it returns a default search analysis
// with zero confidence, which the router escalates to refinement.
package analyze
