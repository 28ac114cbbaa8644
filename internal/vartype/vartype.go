// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package vartype provides a nullable value wrapper. The upstream API reports missing sensor
// values as JSON null, which a plain float64 cannot represent.
package vartype

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Unknown is the textual representation of an unset Variable.
const Unknown = "unknown"

// VarFloat64 is a type alias for Variable[float64], representing a nullable float64 value.
type VarFloat64 = Variable[float64]

// Variable represents a generic type wrapper that holds a value and tracks whether it is set.
type Variable[T any] struct {
	value T
	isset bool
}

// NewVariable creates and returns a new Variable instance initialized with the provided value.
func NewVariable[T any](value T) Variable[T] {
	return Variable[T]{
		isset: true,
		value: value,
	}
}

// Null returns an unset Variable.
func Null[T any]() Variable[T] {
	return Variable[T]{}
}

// Reset clears the value of the Variable and marks it as unset.
func (v *Variable[T]) Reset() {
	var newVal T
	v.value = newVal
	v.isset = false
}

// Value retrieves the current value stored in the Variable.
func (v Variable[T]) Value() T {
	return v.value
}

// Set assigns the provided value to the Variable and marks it as set.
func (v *Variable[T]) Set(val T) {
	v.value = val
	v.isset = true
}

// IsSet returns true if the Variable holds a value.
func (v Variable[T]) IsSet() bool {
	return v.isset
}

// Map applies fn to the value of a set Variable. Unset Variables stay unset.
func Map[T, U any](v Variable[T], fn func(T) U) Variable[U] {
	if !v.isset {
		return Variable[U]{}
	}
	return NewVariable(fn(v.value))
}

// String returns a string representation of the Variable, or Unknown if it is unset.
func (v Variable[T]) String() string {
	if !v.isset {
		return Unknown
	}
	return fmt.Sprint(v.value)
}

// MarshalJSON encodes an unset Variable as JSON null.
func (v Variable[T]) MarshalJSON() ([]byte, error) {
	if !v.isset {
		return []byte("null"), nil
	}
	return json.Marshal(v.value)
}

// UnmarshalJSON decodes JSON null into an unset Variable.
func (v *Variable[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		v.Reset()
		return nil
	}
	var val T
	if err := json.Unmarshal(data, &val); err != nil {
		return err
	}
	v.Set(val)
	return nil
}
