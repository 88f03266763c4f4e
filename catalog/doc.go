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


// Package catalog maintains the field catalog: the per-schema set of
// extractable field names grouped under canonical concept names.
//
// A Catalog holds an immutable Snapshot behind an atomic pointer. Rebuild
// constructs a complete new snapshot off to the side and publishes it with
// a single pointer swap, so concurrent readers always observe a
// self-consistent catalog and a failed rebuild retains the previous one.
//
// Grouping combines a seed set of domain synonyms (amount/total/payment,
// vendor/supplier, ...) with token-set similarity over tokenized field
// names. Field names matching no group become their own singleton group.
package catalog
