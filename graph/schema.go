package graph

import (
	"fmt"
	"maps"
	"reflect"
)

// Reducer defines how a state field is updated: it takes the current
// value and the incoming value and returns the merged value. Reducers
// must be associative and order-preserving with respect to the order
// updates are merged in, since that determines replayability.
type Reducer func(current, incoming any) (any, error)

// Schema declares the fields of the graph state and, per field, the
// reducer used to merge updates into it. Updates carrying a field not
// declared here are rejected with a SchemaError.
type Schema struct {
	fields map[string]Reducer
	order  []string
}

// NewSchema creates an empty schema.
func NewSchema() *Schema {
	return &Schema{
		fields: make(map[string]Reducer),
	}
}

// RegisterField declares a state field with its reducer. A nil reducer
// declares the field with replace semantics. Re-registering a field
// replaces its reducer.
func (s *Schema) RegisterField(name string, reducer Reducer) {
	if reducer == nil {
		reducer = ReplaceReducer
	}
	if _, ok := s.fields[name]; !ok {
		s.order = append(s.order, name)
	}
	s.fields[name] = reducer
}

// Fields returns the declared field names in declaration order.
func (s *Schema) Fields() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Init returns a fresh state with every declared field present.
func (s *Schema) Init() map[string]any {
	state := make(map[string]any, len(s.order))
	for _, name := range s.order {
		state[name] = nil
	}
	return state
}

// Apply merges a partial update into the current state, applying each
// field's declared reducer. The current map is never mutated; keys absent
// from the update are left untouched. An update key not declared in the
// schema fails with a SchemaError.
func (s *Schema) Apply(current, update map[string]any) (map[string]any, error) {
	result := make(map[string]any, len(current)+len(update))
	maps.Copy(result, current)
	for _, name := range s.order {
		if _, ok := result[name]; !ok {
			result[name] = nil
		}
	}

	for _, name := range s.order {
		incoming, ok := update[name]
		if !ok {
			continue
		}
		merged, err := s.fields[name](result[name], incoming)
		if err != nil {
			return nil, &SchemaError{Key: name, Err: err}
		}
		result[name] = merged
	}

	for key := range update {
		if _, ok := s.fields[key]; !ok {
			return nil, &SchemaError{Key: key, Err: fmt.Errorf("field not declared in schema")}
		}
	}

	return result, nil
}

// Common reducers

// ReplaceReducer overwrites the current value with the incoming one.
func ReplaceReducer(current, incoming any) (any, error) {
	return incoming, nil
}

// AppendReducer concatenates the incoming slice onto the current slice.
// Both sides must be slices; a nil current is treated as empty.
func AppendReducer(current, incoming any) (any, error) {
	incVal := reflect.ValueOf(incoming)
	if incoming == nil || incVal.Kind() != reflect.Slice {
		return nil, fmt.Errorf("append reducer requires a slice, got %T", incoming)
	}

	if current == nil {
		return incoming, nil
	}

	currVal := reflect.ValueOf(current)
	if currVal.Kind() != reflect.Slice {
		return nil, fmt.Errorf("append reducer requires a slice, got %T", current)
	}

	if currVal.Type().Elem() == incVal.Type().Elem() {
		merged := reflect.MakeSlice(currVal.Type(), 0, currVal.Len()+incVal.Len())
		merged = reflect.AppendSlice(merged, currVal)
		merged = reflect.AppendSlice(merged, incVal)
		return merged.Interface(), nil
	}

	// Element types differ: widen to []any.
	result := make([]any, 0, currVal.Len()+incVal.Len())
	for i := 0; i < currVal.Len(); i++ {
		result = append(result, currVal.Index(i).Interface())
	}
	for i := 0; i < incVal.Len(); i++ {
		result = append(result, incVal.Index(i).Interface())
	}
	return result, nil
}
