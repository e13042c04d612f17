package runtime

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/furry-store/backend"
	"github.com/odvcencio/furry-store/hooks"
	"github.com/odvcencio/furry-store/state"
)

type counter struct {
	Count int
	Label string
	Inc   func() error
}

func newCounterHook(t *testing.T) (*hooks.Hook[counter], *state.Store[counter]) {
	t.Helper()
	hook, store, err := hooks.Create(func(set state.SetFunc[counter], _ state.GetFunc[counter], _ *state.Store[counter]) (*counter, error) {
		return &counter{
			Inc: func() error {
				return set.Update(func(c *counter) state.Patch {
					return state.Patch{"count": c.Count + 1}
				})
			},
		}, nil
	})
	require.NoError(t, err)
	return hook, store
}

func selectCount(c *counter) int { return c.Count }

type countView struct {
	hook    *hooks.Hook[counter]
	renders int
}

func (v *countView) Render(ctx *RenderContext) []Element {
	v.renders++
	count := hooks.Select(ctx.Scope, v.hook, selectCount)
	ctx.Text(0, fmt.Sprintf("count=%d", count), backend.DefaultStyle())
	return nil
}

func TestTree_HookRendersOnSliceChange(t *testing.T) {
	hook, store := newCounterHook(t)
	view := &countView{hook: hook}
	tree := NewTree(20, 2)
	tree.SetRoot(view)
	tree.Render()

	assert.Equal(t, "count=0", tree.Buffer().Text())
	require.Equal(t, 1, store.ListenerCount(), "subscription after commit")

	_ = store.SetState(state.Merge[counter](state.Patch{"label": "x"}), false)
	assert.False(t, tree.NeedsRender(), "unrelated change must leave the tree clean")

	require.NoError(t, store.GetState().Inc())
	require.True(t, tree.NeedsRender())
	tree.Render()
	assert.Equal(t, "count=1", tree.Buffer().Text())
}

func TestTree_RenderDirtySkipsCleanSiblings(t *testing.T) {
	hookA, storeA := newCounterHook(t)
	hookB, _ := newCounterHook(t)
	viewA := &countView{hook: hookA}
	viewB := &countView{hook: hookB}
	rootRenders := 0
	tree := NewTree(20, 2)
	tree.SetRoot(ComponentFunc(func(ctx *RenderContext) []Element {
		rootRenders++
		return []Element{
			Place(viewA, ctx.Bounds.Row(0)),
			Place(viewB, ctx.Bounds.Row(1)),
		}
	}))
	tree.RenderDirty()
	require.Equal(t, "count=0\ncount=0", tree.Buffer().Text())

	require.NoError(t, storeA.GetState().Inc())
	require.NoError(t, storeA.GetState().Inc())
	require.True(t, tree.NeedsRender())
	tree.RenderDirty()

	assert.Equal(t, 2, viewA.renders)
	assert.Equal(t, 1, viewB.renders)
	assert.Equal(t, 1, rootRenders)
	assert.Equal(t, "count=2\ncount=0", tree.Buffer().Text())
	assert.False(t, tree.NeedsRender())

	tree.RenderDirty()
	assert.Equal(t, 2, viewA.renders, "nothing dirty")

	tree.Resize(20, 3)
	tree.RenderDirty()
	assert.Equal(t, 2, rootRenders, "resize lays out the whole tree")
	assert.Equal(t, 2, viewB.renders)
}

func TestTree_UnmountReleasesSubscriptions(t *testing.T) {
	hook, store := newCounterHook(t)
	tree := NewTree(20, 2)
	tree.SetRoot(&countView{hook: hook})
	tree.Render()

	tree.SetRoot(nil)
	tree.Render()
	assert.Zero(t, store.ListenerCount())
	_ = store.GetState().Inc()
	assert.False(t, tree.NeedsRender(), "unmounted view must ignore changes")
}

type bumpDuringRender struct {
	store *state.Store[counter]
	done  bool
}

func (b *bumpDuringRender) Render(*RenderContext) []Element {
	if !b.done {
		b.done = true
		_ = b.store.GetState().Inc()
	}
	return nil
}

func TestTree_CommitCatchesChangeDuringRender(t *testing.T) {
	hook, store := newCounterHook(t)
	view := &countView{hook: hook}
	bump := &bumpDuringRender{store: store}
	tree := NewTree(20, 2)
	tree.SetRoot(ComponentFunc(func(ctx *RenderContext) []Element {
		return []Element{
			Place(view, ctx.Bounds.Row(0)),
			Place(bump, ctx.Bounds.Row(1)),
		}
	}))
	tree.Render()

	assert.Equal(t, "count=0", tree.Buffer().Text(), "first frame is stale")
	require.True(t, tree.NeedsRender(), "commit re-check requests a render")
	assert.Equal(t, 1, tree.Settle(5))
	assert.Equal(t, "count=1", tree.Buffer().Text())
}

type keyedItem struct {
	label  string
	mounts *int
}

func (k keyedItem) Render(ctx *RenderContext) []Element {
	hooks.UseRef(ctx.Scope, func() bool {
		*k.mounts++
		return true
	})
	ctx.Text(0, k.label, backend.DefaultStyle())
	return nil
}

func TestTree_KeyedChildrenKeepScope(t *testing.T) {
	mounts := 0
	order := []string{"a", "b", "c"}
	tree := NewTree(10, 3)
	tree.SetRoot(ComponentFunc(func(ctx *RenderContext) []Element {
		out := make([]Element, 0, len(order))
		for i, key := range order {
			out = append(out, Keyed(key, keyedItem{label: key, mounts: &mounts}, ctx.Bounds.Row(i)))
		}
		return out
	}))
	tree.Render()

	order = []string{"c", "a", "b"}
	tree.Render()
	assert.Equal(t, 3, mounts, "reordering keeps keyed scopes")
	assert.Equal(t, "c\na\nb", tree.Buffer().Text())

	order = []string{"a"}
	tree.Render()
	assert.Equal(t, 2, tree.Mounted(), "root and one child")
}

func TestTree_EffectsRunChildrenFirst(t *testing.T) {
	var trace []string
	effect := func(name string) Component {
		return ComponentFunc(func(ctx *RenderContext) []Element {
			hooks.UseEffect(ctx.Scope, func() func() {
				trace = append(trace, name)
				return nil
			})
			return nil
		})
	}
	child := effect("child")
	tree := NewTree(10, 2)
	tree.SetRoot(ComponentFunc(func(ctx *RenderContext) []Element {
		hooks.UseEffect(ctx.Scope, func() func() {
			trace = append(trace, "parent")
			return nil
		})
		return []Element{Place(child, ctx.Bounds)}
	}))
	tree.Render()

	assert.Equal(t, []string{"child", "parent"}, trace)
}

type keyCatcher struct {
	name string
	seen *[]string
	take bool
}

func (k *keyCatcher) Render(*RenderContext) []Element { return nil }

func (k *keyCatcher) HandleMessage(msg Message) HandleResult {
	*k.seen = append(*k.seen, k.name)
	if k.take {
		return Handled()
	}
	return Unhandled()
}

func TestTree_HandleMessageDeepestFirst(t *testing.T) {
	var seen []string
	leaf := &keyCatcher{name: "leaf", seen: &seen}
	sibling := &keyCatcher{name: "sibling", seen: &seen, take: true}
	tree := NewTree(10, 2)
	tree.SetRoot(ComponentFunc(func(ctx *RenderContext) []Element {
		return []Element{Place(leaf, ctx.Bounds), Place(sibling, ctx.Bounds)}
	}))
	tree.Render()

	assert.True(t, tree.HandleMessage(KeyMsg{Rune: 'x'}).Handled)
	assert.Equal(t, []string{"leaf", "sibling"}, seen)
}
