package model

import (
	"encoding/json"
	"fmt"
)

// State is the state of a tri-state Field.
type State uint8

const (
	// StateUnknown means the value could not be determined (failure or timeout).
	// It is the zero value so that unset fields are Unknown.
	StateUnknown State = iota

	// StateEmpty means the query succeeded but produced no value.
	StateEmpty

	// StatePresent means the query succeeded and produced a value.
	StatePresent
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateEmpty:
		return "empty"
	case StatePresent:
		return "present"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Field holds a value of type T together with its tri-state.
//
// Fields are immutable values: constructors return a new Field and there are
// no setters. Use Known, Empty or Unknown to build one.
type Field[T any] struct {
	state State
	value T
}

// Known returns a present Field holding v.
func Known[T any](v T) Field[T] {
	return Field[T]{state: StatePresent, value: v}
}

// Empty returns an explicit-empty Field.
func Empty[T any]() Field[T] {
	return Field[T]{state: StateEmpty}
}

// Unknown returns an unknown Field. It is equal to the zero value.
func Unknown[T any]() Field[T] {
	return Field[T]{}
}

// State returns the state of the field.
func (f Field[T]) State() State {
	return f.state
}

// Get returns the value and true if the field is present.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.state == StatePresent
}

// IsPresent reports whether the field holds a value.
func (f Field[T]) IsPresent() bool { return f.state == StatePresent }

// IsEmpty reports whether the field is explicitly empty.
func (f Field[T]) IsEmpty() bool { return f.state == StateEmpty }

// IsUnknown reports whether the field is unknown.
func (f Field[T]) IsUnknown() bool { return f.state == StateUnknown }

// fieldJSON is the wire shape of a Field. Value is omitted unless present.
type fieldJSON[T any] struct {
	State string `json:"state"`
	Value *T     `json:"value,omitempty"`
}

// MarshalJSON encodes the field as {"state": "...", "value": ...}.
// The state is always written so Empty and Unknown stay distinguishable.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	out := fieldJSON[T]{State: f.state.String()}
	if f.state == StatePresent {
		v := f.value
		out.Value = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the shape written by MarshalJSON.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	var in fieldJSON[T]
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.State {
	case "present":
		if in.Value == nil {
			return fmt.Errorf("present field without value")
		}
		*f = Known(*in.Value)
	case "empty":
		*f = Empty[T]()
	case "unknown", "":
		*f = Unknown[T]()
	default:
		return fmt.Errorf("unknown field state %q", in.State)
	}
	return nil
}
