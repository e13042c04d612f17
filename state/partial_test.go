package state

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Name    string            `state:"name"`
	Age     int64             `state:"age"`
	Tags    []string          `state:"tags"`
	Meta    map[string]string `state:"meta"`
	Address *address          `state:"address"`
}

type address struct {
	City string
}

func TestMerge_ShallowReplacesNestedValues(t *testing.T) {
	prev := &profile{
		Name:    "ada",
		Age:     36,
		Tags:    []string{"a", "b"},
		Meta:    map[string]string{"k": "v"},
		Address: &address{City: "London"},
	}

	next, err := Merge[profile](Patch{
		"tags":    []string{"c"},
		"meta":    map[string]string{"x": "y"},
		"address": &address{City: "Paris"},
		"Age":     37,
	}).resolve(prev, false)
	require.NoError(t, err)
	assert.NotSame(t, prev, next)
	assert.Equal(t, "ada", next.Name)
	assert.Equal(t, int64(37), next.Age)
	assert.Equal(t, []string{"c"}, next.Tags)
	assert.Equal(t, "Paris", next.Address.City)

	assert.Equal(t, []string{"a", "b"}, prev.Tags, "previous state is untouched")
	assert.Equal(t, map[string]string{"k": "v"}, prev.Meta)
	assert.Equal(t, "London", prev.Address.City)
}

func TestMerge_KeepsReferenceIdentity(t *testing.T) {
	addr := &address{City: "Paris"}
	tags := []string{"a", "b"}
	meta := map[string]string{"k": "v"}
	prev := &profile{Name: "ada"}

	next, err := Merge[profile](Patch{
		"address": addr,
		"tags":    tags,
		"meta":    meta,
	}).resolve(prev, false)
	require.NoError(t, err)
	assert.Same(t, addr, next.Address)
	assert.Same(t, &tags[0], &next.Tags[0])
	assert.Equal(t, reflect.ValueOf(meta).Pointer(), reflect.ValueOf(next.Meta).Pointer())
}

func TestMerge_ResetSliceKeepsSelectorQuiet(t *testing.T) {
	var set SetFunc[profile]
	s, err := New(func(sf SetFunc[profile], _ GetFunc[profile], _ *Store[profile]) (*profile, error) {
		set = sf
		return &profile{Name: "ada", Tags: []string{"go"}}, nil
	})
	require.NoError(t, err)

	fired := 0
	unsubscribe := SubscribeSelector(s, func(p *profile) []string { return p.Tags }, func(_, _ []string) { fired++ })
	defer unsubscribe()

	require.NoError(t, set.Update(func(p *profile) Patch { return Patch{"tags": p.Tags, "name": "grace"} }))
	assert.Equal(t, "grace", s.GetState().Name)
	assert.Zero(t, fired, "re-set slice is the same slice")

	require.NoError(t, set.Merge(Patch{"tags": []string{"go"}}))
	assert.Equal(t, 1, fired, "a fresh slice is a change")
}

func TestMerge_Replace(t *testing.T) {
	prev := &profile{Name: "ada", Age: 36}
	next, err := Merge[profile](Patch{"age": 1}).resolve(prev, true)
	require.NoError(t, err)
	assert.Empty(t, next.Name, "replace starts from the zero value")
	assert.Equal(t, int64(1), next.Age)
}

func TestMerge_InvalidPatch(t *testing.T) {
	prev := &profile{Name: "ada"}
	_, err := Merge[profile](Patch{"missing": 1}).resolve(prev, false)
	assert.ErrorIs(t, err, ErrInvalidPatch, "unknown key")
	_, err = Merge[profile](Patch{"age": "old"}).resolve(prev, false)
	assert.ErrorIs(t, err, ErrInvalidPatch, "type mismatch")
	n := 3
	_, err = Merge[int](Patch{"x": 1}).resolve(&n, false)
	assert.ErrorIs(t, err, ErrInvalidPatch, "scalar state")
}

func TestMerge_InvalidPatchLeavesStoreUntouched(t *testing.T) {
	s := newCounter(t)
	calls := 0
	s.Subscribe(func(_, _ *counter) { calls++ })
	before := s.GetState()

	assert.ErrorIs(t, s.SetState(Merge[counter](Patch{"nope": true}), false), ErrInvalidPatch)
	assert.Same(t, before, s.GetState())
	assert.Zero(t, calls)
}

func TestMerge_MapState(t *testing.T) {
	prev := &map[string]any{"count": 1, "label": "x"}
	next, err := Merge[map[string]any](Patch{"count": 2}).resolve(prev, false)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 2, "label": "x"}, *next)
	assert.Equal(t, 1, (*prev)["count"], "previous map is untouched")

	replaced, err := Merge[map[string]any](Patch{"count": 3}).resolve(prev, true)
	require.NoError(t, err)
	assert.Len(t, *replaced, 1, "replace drops other keys")
}

func TestProduce(t *testing.T) {
	prev := &profile{Name: "ada", Age: 36}
	next, err := Produce(func(draft *profile) { draft.Age++ }).resolve(prev, false)
	require.NoError(t, err)
	assert.NotSame(t, prev, next)
	assert.Equal(t, int64(37), next.Age)
	assert.Equal(t, int64(36), prev.Age)
	assert.Equal(t, "ada", next.Name)

	fresh, err := Produce(func(draft *profile) { draft.Age = 1 }).resolve(prev, true)
	require.NoError(t, err)
	assert.Empty(t, fresh.Name, "replace draft starts empty")
}

func TestReplace(t *testing.T) {
	prev := &profile{Name: "ada"}
	value := &profile{Name: "grace"}

	copied, err := Replace(value).resolve(prev, false)
	require.NoError(t, err)
	assert.NotSame(t, value, copied)
	assert.Equal(t, "grace", copied.Name)

	installed, err := Replace(value).resolve(prev, true)
	require.NoError(t, err)
	assert.Same(t, value, installed)

	_, err = Replace[profile](nil).resolve(prev, true)
	assert.ErrorIs(t, err, ErrNilState)
}

func TestSetFunc_Shorthands(t *testing.T) {
	var set SetFunc[profile]
	s, err := New(func(sf SetFunc[profile], _ GetFunc[profile], _ *Store[profile]) (*profile, error) {
		set = sf
		return &profile{Name: "ada"}, nil
	})
	require.NoError(t, err)

	require.NoError(t, set.Merge(Patch{"age": 10}))
	require.NoError(t, set.Produce(func(d *profile) { d.Age *= 2 }))
	assert.Equal(t, &profile{Name: "ada", Age: 20}, s.GetState())

	require.NoError(t, set.Replace(&profile{Name: "grace"}))
	assert.Equal(t, &profile{Name: "grace"}, s.GetState())
}

func TestKindOf(t *testing.T) {
	cases := map[string]Partial[profile]{
		"merge":   Merge[profile](Patch{"age": 1}),
		"update":  Update(func(*profile) Patch { return nil }),
		"produce": Produce(func(*profile) {}),
		"replace": Replace(&profile{}),
	}
	for want, p := range cases {
		assert.Equal(t, want, KindOf(p))
	}
	assert.Empty(t, KindOf[profile](nil))
}
