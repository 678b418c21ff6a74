package toolset

import (
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// FieldType is the closed set of value types a tool field may declare.
type FieldType int

const (
	FieldString FieldType = iota
	FieldInteger
	FieldNumber
	FieldBoolean
	FieldStringList
	FieldObjectList
)

// String returns the JSON schema type name for the field type.
func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "string"
	case FieldInteger:
		return "integer"
	case FieldNumber:
		return "number"
	case FieldBoolean:
		return "boolean"
	case FieldStringList, FieldObjectList:
		return "array"
	default:
		return "unknown"
	}
}

// Field declares one named, typed value with its validation constraints.
type Field struct {
	Name        string
	Description string
	Type        FieldType
	Required    bool

	// Enum restricts string fields to a fixed set of values.
	Enum []string

	// Min and Max bound numeric fields.
	Min *float64
	Max *float64

	// MinLength and MaxLength bound string fields.
	MinLength *int
	MaxLength *int

	// MaxItems bounds list fields.
	MaxItems *int

	// Default is applied to absent arguments before validation.
	Default any

	// Fields describes the elements of an object list.
	Fields []Field
}

// Schema is a declarative set of fields describing a tool's input or output.
type Schema struct {
	Fields []Field
}

// Bound returns a pointer for numeric constraints.
func Bound(v float64) *float64 {
	return &v
}

// Count returns a pointer for length and item constraints.
func Count(n int) *int {
	return &n
}

// JSONSchema translates the descriptor into the object schema the transport
// advertises. It is called once per tool at registration time.
func (s Schema) JSONSchema() (*jsonschema.Schema, error) {
	return objectSchema(s.Fields)
}

// Defaults fills absent top-level arguments with declared defaults.
func (s Schema) Defaults(args map[string]any) {
	for _, f := range s.Fields {
		if f.Default == nil {
			continue
		}
		if _, ok := args[f.Name]; !ok {
			args[f.Name] = f.Default
		}
	}
}

func objectSchema(fields []Field) (*jsonschema.Schema, error) {
	out := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(fields)),
	}

	var errs []error
	for i, f := range fields {
		if f.Name == "" {
			errs = append(errs, fmt.Errorf("%w: field %d", ErrMissingFieldName, i))
			continue
		}
		if _, dup := out.Properties[f.Name]; dup {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateField, f.Name))
			continue
		}
		prop, err := fieldSchema(f)
		if err != nil {
			errs = append(errs, fmt.Errorf("field %s: %w", f.Name, err))
			continue
		}
		out.Properties[f.Name] = prop
		if f.Required {
			out.Required = append(out.Required, f.Name)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

func fieldSchema(f Field) (*jsonschema.Schema, error) {
	if len(f.Enum) > 0 && f.Type != FieldString {
		return nil, ErrEnumOnNonString
	}

	s := &jsonschema.Schema{Description: f.Description}
	switch f.Type {
	case FieldString:
		s.Type = "string"
		s.MinLength = f.MinLength
		s.MaxLength = f.MaxLength
		for _, v := range f.Enum {
			s.Enum = append(s.Enum, v)
		}
	case FieldInteger:
		s.Type = "integer"
		s.Minimum = f.Min
		s.Maximum = f.Max
	case FieldNumber:
		s.Type = "number"
		s.Minimum = f.Min
		s.Maximum = f.Max
	case FieldBoolean:
		s.Type = "boolean"
	case FieldStringList:
		s.Type = "array"
		s.Items = &jsonschema.Schema{Type: "string"}
		s.MaxItems = f.MaxItems
	case FieldObjectList:
		if len(f.Fields) == 0 {
			return nil, ErrNestedFieldsNeeded
		}
		item, err := objectSchema(f.Fields)
		if err != nil {
			return nil, err
		}
		s.Type = "array"
		s.Items = item
		s.MaxItems = f.MaxItems
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFieldType, int(f.Type))
	}
	return s, nil
}
