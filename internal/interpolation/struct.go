package interpolation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// TagName marks struct fields that are expanded by InterpolateStruct.
const TagName = "env_interpolation"

// InterpolateStruct expands string, []string and map[string]string fields
// tagged `env_interpolation:"yes"`, in place, against the process
// environment. Nested structs and struct pointers are always walked.
func InterpolateStruct(v any) error {
	return InterpolateStructWith(v, nil)
}

// InterpolateStructWith is InterpolateStruct with a custom lookup.
func InterpolateStructWith(v any, lookup LookupFunc) error {
	if v == nil {
		return nil
	}
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Pointer {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("expected struct or pointer to struct, got %T", v)
	}
	if !val.CanSet() {
		return fmt.Errorf("cannot interpolate non-addressable %T", v)
	}
	return walk(val, lookup)
}

func walk(val reflect.Value, lookup LookupFunc) error {
	typ := val.Type()
	var errs []error

	for i := range val.NumField() {
		field := val.Field(i)
		meta := typ.Field(i)
		if !field.CanSet() {
			continue
		}
		tagged := strings.EqualFold(meta.Tag.Get(TagName), "yes")

		switch field.Kind() {
		case reflect.String:
			if !tagged || field.String() == "" {
				continue
			}
			s, err := Expand(field.String(), lookup)
			if err != nil {
				errs = append(errs, fmt.Errorf("field %s: %w", meta.Name, err))
				continue
			}
			field.SetString(s)

		case reflect.Slice:
			if !tagged || field.Type().Elem().Kind() != reflect.String {
				continue
			}
			for j := range field.Len() {
				elem := field.Index(j)
				s, err := Expand(elem.String(), lookup)
				if err != nil {
					errs = append(errs, fmt.Errorf("field %s[%d]: %w", meta.Name, j, err))
					continue
				}
				elem.SetString(s)
			}

		case reflect.Map:
			if !tagged || field.IsNil() ||
				field.Type().Key().Kind() != reflect.String ||
				field.Type().Elem().Kind() != reflect.String {
				continue
			}
			for _, key := range field.MapKeys() {
				s, err := Expand(field.MapIndex(key).String(), lookup)
				if err != nil {
					errs = append(errs, fmt.Errorf("field %s[%s]: %w", meta.Name, key.String(), err))
					continue
				}
				field.SetMapIndex(key, reflect.ValueOf(s).Convert(field.Type().Elem()))
			}

		case reflect.Struct:
			if err := walk(field, lookup); err != nil {
				errs = append(errs, fmt.Errorf("field %s: %w", meta.Name, err))
			}

		case reflect.Pointer:
			if field.IsNil() || field.Type().Elem().Kind() != reflect.Struct {
				continue
			}
			if err := walk(field.Elem(), lookup); err != nil {
				errs = append(errs, fmt.Errorf("field %s: %w", meta.Name, err))
			}
		}
	}

	return errors.Join(errs...)
}
