package enum

import (
	"fmt"
	"reflect"
	"sort"
)

var enumManager = map[string]any{}

type enum[T comparable] struct {
	toEnum map[string]T
}

// New registers a value of a string-kind enum type and returns it. It is
// intended to be called from package-level var blocks only.
func New[T comparable](value T) T {
	v := reflect.ValueOf(value)
	t := v.Type()
	if _, ok := enumManager[t.Name()]; !ok {
		enumManager[t.Name()] = enum[T]{toEnum: make(map[string]T)}
	}

	enumManager[t.Name()].(enum[T]).toEnum[v.String()] = value
	return value
}

func ToEnum[T comparable](s string) (T, error) {
	var defaultT T
	e, ok := enumManager[reflect.TypeOf(defaultT).Name()]
	if !ok {
		return defaultT, fmt.Errorf("not found enum type %T", defaultT)
	}

	t, ok := e.(enum[T]).toEnum[s]
	if !ok {
		return defaultT, fmt.Errorf("not found value %s in enum %T", s, defaultT)
	}

	return t, nil
}

// ToList returns all registered values of an enum type in a deterministic
// order.
func ToList[T comparable]() []T {
	var defaultT T
	e, ok := enumManager[reflect.TypeOf(defaultT).Name()]
	if !ok {
		return nil
	}

	names := []string{}
	for name := range e.(enum[T]).toEnum {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]T, 0, len(names))
	for _, name := range names {
		values = append(values, e.(enum[T]).toEnum[name])
	}

	return values
}
