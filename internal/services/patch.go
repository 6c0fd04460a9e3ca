package services

import (
	"bytes"
	"encoding/json"
)

// Field is one optional member of a partial update. Set reports whether the
// field was present in the request at all; Null reports an explicit JSON
// null. A field that is absent is left untouched by the update.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Set returns a present field holding v.
func Set[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null returns a present field holding an explicit null.
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// UnmarshalJSON is only invoked for keys present in the document, which is
// what separates absent from null.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		var zero T
		f.Value = zero
		return nil
	}
	return json.Unmarshal(data, &f.Value)
}

// MarshalJSON renders an absent or null field as null.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set || f.Null {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}
