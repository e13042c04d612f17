package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct {
	A, B int
}

type pairs struct {
	A, B  int
	Other string
	Items []string
}

func newPairs(t *testing.T) *Store[pairs] {
	t.Helper()
	s, err := New(func(SetFunc[pairs], GetFunc[pairs], *Store[pairs]) (*pairs, error) {
		return &pairs{A: 1, B: 2}, nil
	})
	require.NoError(t, err)
	return s
}

func TestSubscribeSelector_SeededSlice(t *testing.T) {
	s := newCounter(t)
	var got []int
	SubscribeSelector(s, func(c *counter) int { return c.Value }, func(slice, _ int) {
		got = append(got, slice)
	}, WithCurrentSlice(5))

	require.NoError(t, s.SetState(Merge[counter](Patch{"value": 5}), false))
	assert.Empty(t, got, "unchanged slice does not notify")
	require.NoError(t, s.SetState(Merge[counter](Patch{"value": 6}), false))
	assert.Equal(t, []int{6}, got)
}

func TestSubscribeSelector_DefaultEquality(t *testing.T) {
	s := newCounter(t)
	calls := 0
	var prevSeen int
	SubscribeSelector(s, func(c *counter) int { return c.Count }, func(slice, prev int) {
		calls++
		prevSeen = prev
	})

	_ = s.SetState(Merge[counter](Patch{"label": "x"}), false)
	assert.Zero(t, calls, "unchanged slice does not notify")
	_ = s.GetState().Inc()
	_ = s.GetState().Inc()
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, prevSeen)
}

func TestSubscribeSelector_CustomEquality(t *testing.T) {
	s := newCounter(t)
	calls := 0
	sameParity := func(a, b int) bool { return a%2 == b%2 }
	SubscribeSelector(s, func(c *counter) int { return c.Count }, func(_, _ int) {
		calls++
	}, WithEqual(sameParity))

	_ = s.SetState(Merge[counter](Patch{"count": 2}), false)
	assert.Zero(t, calls, "equal parity suppresses")
	_ = s.SetState(Merge[counter](Patch{"count": 3}), false)
	assert.Equal(t, 1, calls)
}

func TestSubscribeSelector_FreshObjectPitfall(t *testing.T) {
	s := newPairs(t)
	selectPair := func(p *pairs) pair { return pair{A: p.A, B: p.B} }
	selectMap := func(p *pairs) map[string]int { return map[string]int{"a": p.A, "b": p.B} }

	identityCalls, shallowCalls, structCalls := 0, 0, 0
	SubscribeSelector(s, selectMap, func(_, _ map[string]int) { identityCalls++ })
	SubscribeSelector(s, selectMap, func(_, _ map[string]int) { shallowCalls++ }, WithEqual(Shallow[map[string]int]))
	SubscribeSelector(s, selectPair, func(_, _ pair) { structCalls++ })

	for i := 0; i < 3; i++ {
		_ = s.SetState(Merge[pairs](Patch{"other": "x"}), false)
	}
	assert.Equal(t, 3, identityCalls, "identity equality notifies every transition")
	assert.Zero(t, shallowCalls, "shallow equality suppresses")
	assert.Zero(t, structCalls, "comparable struct slices compare by value")

	_ = s.SetState(Merge[pairs](Patch{"a": 10}), false)
	assert.Equal(t, 1, shallowCalls)
	assert.Equal(t, 1, structCalls)
}

func TestSubscribeSelector_Unsubscribe(t *testing.T) {
	s := newCounter(t)
	calls := 0
	unsub := SubscribeSelector(s, func(c *counter) int { return c.Count }, func(_, _ int) { calls++ })

	_ = s.GetState().Inc()
	unsub()
	_ = s.GetState().Inc()
	assert.Equal(t, 1, calls)
}

func TestSubscribeSelector_UsesLiveStateAfterNestedSet(t *testing.T) {
	s := newCounter(t)
	var seen []int
	s.Subscribe(func(state, _ *counter) {
		if state.Count == 1 {
			_ = state.Inc()
		}
	})
	SubscribeSelector(s, func(c *counter) int { return c.Count }, func(slice, _ int) {
		seen = append(seen, slice)
	})

	_ = s.GetState().Inc()
	assert.Equal(t, []int{2}, seen, "a single notification with the newest slice")
}

func TestSubscribeSelector_SelectorPanicPropagates(t *testing.T) {
	s := newCounter(t)
	SubscribeSelector(s, func(c *counter) int {
		if c.Count > 0 {
			panic("selector failed")
		}
		return c.Count
	}, func(_, _ int) {})

	assert.PanicsWithValue(t, "selector failed", func() { _ = s.GetState().Inc() })
	assert.Equal(t, 1, s.GetState().Count, "state stays swapped")
}

func TestSubscribeSelector_NilArguments(t *testing.T) {
	s := newCounter(t)
	SubscribeSelector[counter, int](nil, nil, nil)()
	SubscribeSelector(s, nil, func(_, _ int) {})()
	assert.Zero(t, s.ListenerCount())
}
