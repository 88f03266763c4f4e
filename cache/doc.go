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


// Package cache defines the durable query cache abstraction and the
// binary serialization of cached entries.
//
// The cache stores query analyses, never search results: entries are
// intent caches keyed by a normalized hash of the query text, the request
// scope, and the field catalog version. Keying on the catalog version
// means a rebuild implicitly invalidates every entry resolved under the
// old field mappings. Entries have no TTL; they are only removed by the
// bounded least-recently-used eviction of the backing store.
//
// The badger subpackage provides the BadgerDB-backed implementation.
package cache
