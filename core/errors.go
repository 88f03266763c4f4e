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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidAnalysis indicates a QueryAnalysis failed validation.
	ErrInvalidAnalysis = errors.New("invalid query analysis")

	// ErrInvalidSchema indicates a Schema failed validation.
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrInvalidIntent indicates an invalid Intent value.
	ErrInvalidIntent = errors.New("invalid intent")

	// ErrInvalidOperator indicates an invalid Operator value.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrInvalidConfidence indicates a confidence score outside [0,1].
	ErrInvalidConfidence = errors.New("confidence must be in [0,1]")

	// ErrEmptySchemaID indicates a schema with no identifier.
	ErrEmptySchemaID = errors.New("schema id cannot be empty")

	// ErrEmptyFieldName indicates a schema field with no name.
	ErrEmptyFieldName = errors.New("field name cannot be empty")

	// ErrEmptyFilterField indicates a filter with no field phrase.
	ErrEmptyFilterField = errors.New("filter field cannot be empty")
)
