package operations

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/singletonlabs/singleton-deployer/pkg/logger"
)

// ErrNotSerializable rejects step inputs and outputs which do not survive a JSON round trip.
var ErrNotSerializable = errors.New("value cannot be written to a report without losing data")

var (
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// IsSerializable reports whether v can be written as JSON and read back without losing data.
// Functions, channels and structs with unexported fields are rejected unless the type marshals
// itself.
func IsSerializable(lggr logger.Logger, v any) bool {
	if v == nil {
		return true
	}

	if err := checkType(reflect.TypeOf(v), map[reflect.Type]bool{}); err != nil {
		lggr.Errorw("Value is not serializable", "type", fmt.Sprintf("%T", v), "error", err)
		return false
	}

	if _, err := json.Marshal(v); err != nil {
		lggr.Errorw("Value is not JSON serializable", "type", fmt.Sprintf("%T", v), "error", err)
		return false
	}

	return true
}

func checkType(t reflect.Type, seen map[reflect.Type]bool) error {
	if seen[t] {
		return nil
	}
	seen[t] = true

	if t.Implements(jsonMarshalerType) || reflect.PointerTo(t).Implements(jsonMarshalerType) ||
		t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType) {
		return nil
	}

	switch t.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return fmt.Errorf("kind %s cannot be serialized", t.Kind())
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return checkType(t.Elem(), seen)
	case reflect.Map:
		if err := checkType(t.Key(), seen); err != nil {
			return err
		}

		return checkType(t.Elem(), seen)
	case reflect.Struct:
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				return fmt.Errorf("struct %s has unexported field %s", t, f.Name)
			}
			if f.Tag.Get("json") == "-" {
				continue
			}
			if err := checkType(f.Type, seen); err != nil {
				return err
			}
		}
	}

	return nil
}
