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

package router

import "errors"

var (
	// ErrCatalogRequired is returned when a field catalog is not provided.
	ErrCatalogRequired = errors.New("field catalog required")

	// ErrAnalyzerRequired is returned when a query analyzer is not provided.
	ErrAnalyzerRequired = errors.New("query analyzer required")

	// ErrCacheRequired is returned when a query cache is not provided.
	ErrCacheRequired = errors.New("query cache required")

	// ErrExecutorRequired is returned when a search executor is not provided.
	ErrExecutorRequired = errors.New("search executor required")
)
