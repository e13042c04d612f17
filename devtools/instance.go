package devtools

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/mitchellh/mapstructure"
)

// Instance is one store registered with a Hub.
type Instance struct {
	hub      *Hub
	id       string
	name     string
	snapshot func() any
	closed   atomic.Bool
}

// ID returns the instance identifier carried by its events.
func (i *Instance) ID() string {
	return i.id
}

// Name returns the store name.
func (i *Instance) Name() string {
	return i.name
}

// Send publishes the current state after a transition labelled action.
// It returns ErrClosed once the instance or its hub is closed.
func (i *Instance) Send(action string, replace bool) error {
	if i.closed.Load() {
		return ErrClosed
	}
	return i.publish(EventSet, action, replace)
}

// Close removes the instance from its hub and tells connected clients the
// store is gone. Clients that connect later never see it.
func (i *Instance) Close() error {
	if !i.closed.CompareAndSwap(false, true) || !i.hub.disconnect(i) {
		return nil
	}
	err := i.hub.Publish(Event{
		Type:     EventClose,
		Instance: i.id,
		Store:    i.name,
		State:    json.RawMessage("null"),
	})
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

func (i *Instance) publish(typ EventType, action string, replace bool) error {
	ev, err := i.event(typ, action, replace)
	if err != nil {
		return err
	}
	return i.hub.Publish(ev)
}

func (i *Instance) event(typ EventType, action string, replace bool) (Event, error) {
	var value any
	if i.snapshot != nil {
		value = i.snapshot()
	}
	raw, err := EncodeState(value)
	if err != nil {
		return Event{}, fmt.Errorf("devtools: encode %s state: %w", i.name, err)
	}
	return Event{
		Type:     typ,
		Instance: i.id,
		Store:    i.name,
		Action:   action,
		Replace:  replace,
		State:    raw,
	}, nil
}

// EncodeState renders a state value as JSON. Struct states are flattened to
// their exported data fields: function and channel fields (store actions)
// are left out.
func EncodeState(v any) (json.RawMessage, error) {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return json.RawMessage("null"), nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return json.RawMessage("null"), nil
	}
	if rv.Kind() != reflect.Struct {
		return json.Marshal(rv.Interface())
	}

	fields := make(map[string]any)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &fields,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(rv.Interface()); err != nil {
		return nil, err
	}
	for key, value := range fields {
		if value == nil {
			continue
		}
		switch reflect.TypeOf(value).Kind() {
		case reflect.Func, reflect.Chan, reflect.UnsafePointer:
			delete(fields, key)
		}
	}
	return json.Marshal(fields)
}
