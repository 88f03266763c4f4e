package schema

import (
	"context"
	"fmt"
	"os"

	"github.com/poiesic/queryroute/core"
	"gopkg.in/yaml.v3"
)

// FileSource is a Source that reads schemas from a YAML file.
// The file is re-read on every ListSchemas call so edits are picked up
// by the next catalog rebuild without restarting the process.
//
// File format:
//
//	schemas:
//	  - id: invoices
//	    fields:
//	      - name: total_amount
//	        type: number
//	      - name: vendor_name
//	        type: text
type FileSource struct {
	path string
}

var _ Source = (*FileSource)(nil)

type schemaFile struct {
	Schemas []schemaEntry `yaml:"schemas"`
}

type schemaEntry struct {
	ID     string       `yaml:"id"`
	Fields []fieldEntry `yaml:"fields"`
}

type fieldEntry struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// NewFileSource creates a FileSource reading from the given path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// ListSchemas reads and parses the schema file.
func (s *FileSource) ListSchemas(ctx context.Context) ([]core.Schema, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSchemaFile, err)
	}

	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSchemaFile, err)
	}

	schemas := make([]core.Schema, 0, len(file.Schemas))
	for _, entry := range file.Schemas {
		schema := core.Schema{
			SchemaID: entry.ID,
			Fields:   make([]core.FieldDef, 0, len(entry.Fields)),
		}
		for _, field := range entry.Fields {
			fieldType, err := parseFieldType(field.Type)
			if err != nil {
				return nil, fmt.Errorf("schema %q field %q: %w", entry.ID, field.Name, err)
			}
			schema.Fields = append(schema.Fields, core.FieldDef{
				Name: field.Name,
				Type: fieldType,
			})
		}
		if err := core.ValidateSchema(&schema); err != nil {
			return nil, err
		}
		schemas = append(schemas, schema)
	}

	return schemas, nil
}

// parseFieldType maps a declared type string to a core.FieldType.
// An empty type defaults to text, matching how schema editors treat
// untyped fields.
func parseFieldType(s string) (core.FieldType, error) {
	switch s {
	case "", "text", "string":
		return core.FieldTypeText, nil
	case "number", "float", "integer":
		return core.FieldTypeNumber, nil
	case "date", "datetime":
		return core.FieldTypeDate, nil
	case "boolean", "bool":
		return core.FieldTypeBoolean, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFieldType, s)
}
