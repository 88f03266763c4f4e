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

import "fmt"

// ValidateAnalysis validates a QueryAnalysis according to domain rules.
//
// Validation rules:
//   - Intent must be a known value
//   - Confidence must be in [0,1]
//   - Every filter must have a field phrase and a known operator
//
// NOT validated:
//   - CanonicalField (may be empty for unresolved filters)
//   - SuggestedSort (zero value means no suggestion)
func ValidateAnalysis(analysis *QueryAnalysis) error {
	if analysis == nil {
		return fmt.Errorf("%w: analysis is nil", ErrInvalidAnalysis)
	}

	if err := ValidateIntent(analysis.Intent); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAnalysis, err)
	}

	if analysis.Confidence < 0 || analysis.Confidence > 1 {
		return fmt.Errorf("%w: %w", ErrInvalidAnalysis, ErrInvalidConfidence)
	}

	for i, filter := range analysis.Filters {
		if filter.Field == "" && filter.CanonicalField == "" {
			return fmt.Errorf("%w: filter %d: %w", ErrInvalidAnalysis, i, ErrEmptyFilterField)
		}
		if err := ValidateOperator(filter.Operator); err != nil {
			return fmt.Errorf("%w: filter %d: %w", ErrInvalidAnalysis, i, err)
		}
	}

	return nil
}

// ValidateIntent checks that an Intent is a known value.
func ValidateIntent(intent Intent) error {
	switch intent {
	case IntentSearch, IntentRetrieve, IntentAggregate, IntentFilter:
		return nil
	}
	return fmt.Errorf("%w: %d", ErrInvalidIntent, intent)
}

// ValidateOperator checks that an Operator is a known value.
func ValidateOperator(op Operator) error {
	switch op {
	case OpEq, OpGte, OpLte, OpRange, OpExists:
		return nil
	}
	return fmt.Errorf("%w: %d", ErrInvalidOperator, op)
}

// ValidateSchema validates a Schema according to domain rules.
//
// Validation rules:
//   - SchemaID must not be empty
//   - Every field must have a non-empty name
func ValidateSchema(schema *Schema) error {
	if schema == nil {
		return fmt.Errorf("%w: schema is nil", ErrInvalidSchema)
	}

	if schema.SchemaID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSchema, ErrEmptySchemaID)
	}

	for i, field := range schema.Fields {
		if field.Name == "" {
			return fmt.Errorf("%w: field %d: %w", ErrInvalidSchema, i, ErrEmptyFieldName)
		}
	}

	return nil
}
