package state

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs(t *testing.T) {
	items := []int{1, 2}
	names := []string{"a"}
	m := map[string]int{"a": 1}
	p := &pair{A: 1}
	f := func() int { return 1 }

	cases := []struct {
		name string
		got  bool
		want bool
	}{
		{"ints", Is(1, 1), true},
		{"different ints", Is(1, 2), false},
		{"strings", Is("a", "a"), true},
		{"nan", Is(math.NaN(), math.NaN()), true},
		{"same slice", Is(items, items), true},
		{"resliced", Is(items, items[:1]), false},
		{"equal contents", Is(items, []int{1, 2}), false},
		{"same map", Is(m, m), true},
		{"fresh map", Is(m, map[string]int{"a": 1}), false},
		{"same pointer", Is(p, p), true},
		{"fresh pointer", Is(p, &pair{A: 1}), false},
		{"comparable struct", Is(pair{A: 1}, pair{A: 1}), true},
		{"non-comparable struct", Is(pairs{Items: names}, pairs{Items: names}), false},
		{"same func", Is(f, f), true},
		{"nil any", Is[any](nil, nil), true},
		{"nil vs value", Is[any](nil, 1), false},
		{"any mixed types", Is[any](1, "1"), false},
		{"any slices", Is[any](items, items), true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.got, tc.name)
	}
}

func TestShallow(t *testing.T) {
	items := []string{"x"}
	cases := []struct {
		name string
		got  bool
		want bool
	}{
		{"maps", Shallow(map[string]int{"a": 1}, map[string]int{"a": 1}), true},
		{"maps differ", Shallow(map[string]int{"a": 1}, map[string]int{"a": 2}), false},
		{"maps missing key", Shallow(map[string]int{"a": 1}, map[string]int{"b": 1}), false},
		{"slices", Shallow([]int{1, 2}, []int{1, 2}), true},
		{"slices differ", Shallow([]int{1, 2}, []int{1, 3}), false},
		{"structs", Shallow(pairs{A: 1, Items: items}, pairs{A: 1, Items: items}), true},
		{"structs nested fresh", Shallow(pairs{Items: items}, pairs{Items: []string{"x"}}), false},
		{"pointers", Shallow(&pair{A: 1}, &pair{A: 1}), true},
		{"nil pointer", Shallow(&pair{A: 1}, nil), false},
		{"scalars", Shallow(1, 2), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.got, tc.name)
	}
}

func TestSameFunc(t *testing.T) {
	build := func(n int) Selector[counter, int] {
		return func(c *counter) int { return c.Count + n }
	}
	a := build(1)
	b := build(1)
	assert.True(t, SameFunc(a, a))
	assert.False(t, SameFunc(a, b), "separate closures differ")
	var none Selector[counter, int]
	assert.True(t, SameFunc(none, none))
}

func TestEqualComparable(t *testing.T) {
	assert.True(t, EqualComparable(3, 3))
	assert.False(t, EqualComparable("a", "b"))
}
