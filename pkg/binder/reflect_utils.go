package binder

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

var errNotStructPointer = errors.New("target must be a non-nil pointer to struct")

// bindToStruct copies values into the fields of v carrying tagName.
// Fields without the tag are left untouched so several binders can share
// one target struct.
func bindToStruct(v any, tagName string, values map[string][]string, bindErr error) error {
	rv, err := structValue(v)
	if err != nil {
		return fmt.Errorf("%w: %v", bindErr, err)
	}

	rt := rv.Type()
	for i := range rv.NumField() {
		field := rv.Field(i)
		sf := rt.Field(i)
		if !field.CanSet() {
			continue
		}

		name, ok := paramName(sf, tagName)
		if !ok {
			continue
		}

		vals, exists := values[name]
		if !exists || len(vals) == 0 {
			continue
		}
		if err := setFieldValue(field, sf.Type, vals); err != nil {
			return fmt.Errorf("%w: field %s: %v", bindErr, sf.Name, err)
		}
	}

	return nil
}

// taggedFields lists the parameter names declared with tagName.
func taggedFields(v any, tagName string) ([]string, error) {
	rv, err := structValue(v)
	if err != nil {
		return nil, err
	}

	rt := rv.Type()
	names := make([]string, 0, rt.NumField())
	for i := range rt.NumField() {
		if name, ok := paramName(rt.Field(i), tagName); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func structValue(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, errNotStructPointer
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, errNotStructPointer
	}
	return rv, nil
}

func paramName(sf reflect.StructField, tagName string) (string, bool) {
	tag, ok := sf.Tag.Lookup(tagName)
	if !ok || tag == "-" {
		return "", false
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return "", false
	}
	return name, true
}

func setFieldValue(field reflect.Value, typ reflect.Type, values []string) error {
	if typ.Kind() == reflect.Pointer {
		if field.IsNil() {
			field.Set(reflect.New(typ.Elem()))
		}
		return setFieldValue(field.Elem(), typ.Elem(), values)
	}

	if typ.Kind() == reflect.Slice {
		slice := reflect.MakeSlice(typ, len(values), len(values))
		for i, val := range values {
			if err := setFieldValue(slice.Index(i), typ.Elem(), []string{val}); err != nil {
				return err
			}
		}
		field.Set(slice)
		return nil
	}

	value := values[0]
	switch typ.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, typ.Bits())
		if err != nil {
			return fmt.Errorf("invalid int value %q", value)
		}
		field.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, typ.Bits())
		if err != nil {
			return fmt.Errorf("invalid uint value %q", value)
		}
		field.SetUint(n)

	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, typ.Bits())
		if err != nil {
			return fmt.Errorf("invalid float value %q", value)
		}
		field.SetFloat(n)

	case reflect.Bool:
		switch strings.ToLower(value) {
		case "on", "yes":
			field.SetBool(true)
		case "off", "no", "":
			field.SetBool(false)
		default:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid bool value %q", value)
			}
			field.SetBool(b)
		}

	default:
		return fmt.Errorf("unsupported type %s", typ.Kind())
	}

	return nil
}
