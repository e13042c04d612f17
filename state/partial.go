package state

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ErrInvalidPatch is returned when a Patch cannot be applied to the state type.
var ErrInvalidPatch = errors.New("state: invalid patch")

// patchTag names the struct tag consulted when matching Patch keys.
const patchTag = "state"

// Patch maps state field names to new values. Keys match struct fields by
// `state` tag or field name, case-insensitively. For map states keys are
// used verbatim. Values whose type fits the target are stored as given;
// others are converted, e.g. an int into an int64 field.
type Patch map[string]any

// Partial is a transition input: it resolves the next state from the
// current one. Returning the current pointer means "no change".
type Partial[T any] interface {
	resolve(prev *T, replace bool) (*T, error)
	kind() string
}

// KindOf names the form of partial: "merge", "update", "produce" or
// "replace". Middleware uses it to label transitions.
func KindOf[T any](partial Partial[T]) string {
	if partial == nil {
		return ""
	}
	return partial.kind()
}

type mergePartial[T any] struct {
	patch Patch
}

// Merge shallow-merges patch onto the current state.
func Merge[T any](patch Patch) Partial[T] {
	return mergePartial[T]{patch: patch}
}

func (p mergePartial[T]) kind() string { return "merge" }

func (p mergePartial[T]) resolve(prev *T, replace bool) (*T, error) {
	return applyPatch(prev, p.patch, replace)
}

type updatePartial[T any] struct {
	fn func(*T) Patch
}

// Update computes a Patch from the current state. A nil Patch leaves the
// state untouched and notifies nobody.
func Update[T any](fn func(state *T) Patch) Partial[T] {
	return updatePartial[T]{fn: fn}
}

func (p updatePartial[T]) kind() string { return "update" }

func (p updatePartial[T]) resolve(prev *T, replace bool) (*T, error) {
	if p.fn == nil {
		return prev, nil
	}
	patch := p.fn(prev)
	if patch == nil {
		return prev, nil
	}
	return applyPatch(prev, patch, replace)
}

type producePartial[T any] struct {
	fn func(*T)
}

// Produce hands fn a shallow copy of the current state to modify. With
// replace the draft starts from the zero value instead.
// Nested maps, slices and pointers are shared with the previous state and
// must be replaced, not mutated.
func Produce[T any](fn func(draft *T)) Partial[T] {
	return producePartial[T]{fn: fn}
}

func (p producePartial[T]) kind() string { return "produce" }

func (p producePartial[T]) resolve(prev *T, replace bool) (*T, error) {
	if p.fn == nil {
		return prev, nil
	}
	draft := new(T)
	if !replace && prev != nil {
		*draft = *prev
	}
	p.fn(draft)
	return draft, nil
}

type valuePartial[T any] struct {
	value *T
}

// Replace supplies a whole state value. Passing the current pointer is a
// no-op. Without replace the value is copied into a new pointer.
func Replace[T any](value *T) Partial[T] {
	return valuePartial[T]{value: value}
}

func (p valuePartial[T]) kind() string { return "replace" }

func (p valuePartial[T]) resolve(prev *T, replace bool) (*T, error) {
	if p.value == prev {
		return prev, nil
	}
	if p.value == nil {
		return nil, ErrNilState
	}
	if replace {
		return p.value, nil
	}
	next := *p.value
	return &next, nil
}

// SetFunc applies a Partial. Its methods are shorthands for the common
// partial kinds.
type SetFunc[T any] func(partial Partial[T], replace bool) error

// Merge shallow-merges patch onto the current state.
func (set SetFunc[T]) Merge(patch Patch) error {
	return set(Merge[T](patch), false)
}

// Update merges the patch computed by fn.
func (set SetFunc[T]) Update(fn func(state *T) Patch) error {
	return set(Update(fn), false)
}

// Produce applies fn to a shallow copy of the current state.
func (set SetFunc[T]) Produce(fn func(draft *T)) error {
	return set(Produce(fn), false)
}

// Replace installs value as the new state without merging.
func (set SetFunc[T]) Replace(value *T) error {
	return set(Replace(value), true)
}

func applyPatch[T any](prev *T, patch Patch, replace bool) (*T, error) {
	next := new(T)
	if !replace && prev != nil {
		*next = *prev
	}
	rv := reflect.ValueOf(next).Elem()
	switch rv.Kind() {
	case reflect.Struct:
		if err := mergeStruct(rv, patch); err != nil {
			return nil, err
		}
	case reflect.Map:
		if err := mergeMap(rv, patch); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s is not a struct or map", ErrInvalidPatch, rv.Type())
	}
	return next, nil
}

// mergeStruct sets each patched top-level field. Values assignable to the
// field are stored as given, so pointers, slices and maps keep their
// identity; anything else is converted through mapstructure.
func mergeStruct(dst reflect.Value, patch Patch) error {
	fields := structFields(dst.Type())
	for key, value := range patch {
		idx, ok := fields[strings.ToLower(key)]
		if !ok {
			return fmt.Errorf("%w: %s has no field %q", ErrInvalidPatch, dst.Type(), key)
		}
		field := dst.Field(idx)
		elem, err := convertValue(key, value, field.Type())
		if err != nil {
			return err
		}
		field.Set(elem)
	}
	return nil
}

// structFields indexes exported fields by lower-cased `state` tag or name.
func structFields(typ reflect.Type) map[string]int {
	fields := make(map[string]int, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		key := fieldKey(field)
		if !field.IsExported() || key == "" {
			continue
		}
		fields[strings.ToLower(key)] = i
	}
	return fields
}

func fieldKey(field reflect.StructField) string {
	tag, _, _ := strings.Cut(field.Tag.Get(patchTag), ",")
	switch tag {
	case "-":
		return ""
	case "":
		return field.Name
	}
	return tag
}

func mergeMap(dst reflect.Value, patch Patch) error {
	typ := dst.Type()
	if typ.Key().Kind() != reflect.String {
		return fmt.Errorf("%w: %s has non-string keys", ErrInvalidPatch, typ)
	}
	merged := reflect.MakeMapWithSize(typ, dst.Len()+len(patch))
	iter := dst.MapRange()
	for iter.Next() {
		merged.SetMapIndex(iter.Key(), iter.Value())
	}
	elemType := typ.Elem()
	for key, value := range patch {
		elem, err := convertValue(key, value, elemType)
		if err != nil {
			return err
		}
		merged.SetMapIndex(reflect.ValueOf(key).Convert(typ.Key()), elem)
	}
	dst.Set(merged)
	return nil
}

func convertValue(key string, value any, typ reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(typ), nil
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(typ) {
		return rv, nil
	}
	out := reflect.New(typ)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out.Interface(),
		TagName:     patchTag,
		ErrorUnused: true,
	})
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%w: key %q: %w", ErrInvalidPatch, key, err)
	}
	if err := dec.Decode(value); err != nil {
		return reflect.Value{}, fmt.Errorf("%w: key %q: %w", ErrInvalidPatch, key, err)
	}
	return out.Elem(), nil
}
