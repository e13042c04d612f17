package runtime

import (
	"reflect"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/odvcencio/furry-store/backend"
	"github.com/odvcencio/furry-store/hooks"
	"github.com/odvcencio/furry-store/state"
)

// maxCommitPasses bounds effect flushing when effects queue more effects.
const maxCommitPasses = 8

// Tree owns the mounted components, their hook scopes and the frame
// buffer. Render runs a full render pass followed by a commit phase that
// runs the effects scheduled by hooks. RenderDirty re-renders only the
// components whose hooks asked for an update, each with its subtree, after
// blanking their bounds. Tree is driven from one goroutine; node.ForceUpdate
// may be called from any goroutine.
type Tree struct {
	width, height int
	buffer        *Buffer
	root          Component
	mounted       *node
	loop          Loop
	effects       *state.Queue
	logger        *logrus.Entry

	onInvalidate func()
	pending      atomic.Bool
	layout       atomic.Bool
	nodes        atomic.Int64
	renders      atomic.Uint64
}

// NewTree creates a tree with a w x h buffer.
func NewTree(w, h int) *Tree {
	return &Tree{
		width:   w,
		height:  h,
		buffer:  NewBuffer(w, h),
		effects: state.NewQueue(),
		logger:  logrus.NewEntry(logrus.StandardLogger()),
	}
}

// SetLoop sets the app handle given to components.
func (t *Tree) SetLoop(loop Loop) {
	t.loop = loop
}

// SetLogger sets the logger for mount events.
func (t *Tree) SetLogger(logger *logrus.Entry) {
	if logger != nil {
		t.logger = logger
	}
}

// OnInvalidate sets the callback run when a mounted component requests a
// render. It may be called from any goroutine.
func (t *Tree) OnInvalidate(fn func()) {
	t.onInvalidate = fn
}

// Size returns the tree dimensions.
func (t *Tree) Size() (w, h int) {
	return t.width, t.height
}

// Resize changes the tree dimensions. The next Render lays out again.
func (t *Tree) Resize(w, h int) {
	t.width = w
	t.height = h
	t.buffer.Resize(w, h)
	t.layout.Store(true)
	t.pending.Store(true)
}

// Buffer returns the frame buffer.
func (t *Tree) Buffer() *Buffer {
	return t.buffer
}

// SetRoot swaps the root component. The old tree is unmounted on the next
// Render unless the new root has the same type.
func (t *Tree) SetRoot(root Component) {
	t.root = root
	t.layout.Store(true)
	t.pending.Store(true)
}

// Root returns the root component.
func (t *Tree) Root() Component {
	return t.root
}

// NeedsRender reports whether a render was requested since the last pass.
func (t *Tree) NeedsRender() bool {
	return t.pending.Load()
}

// Mounted returns the number of mounted components.
func (t *Tree) Mounted() int {
	return int(t.nodes.Load())
}

// Renders returns the number of completed render passes.
func (t *Tree) Renders() uint64 {
	return t.renders.Load()
}

// Render draws the whole tree into the buffer and commits it.
func (t *Tree) Render() {
	t.pending.Store(false)
	t.layout.Store(false)
	t.buffer.Clear()
	if t.root == nil {
		if t.mounted != nil {
			t.unmount(t.mounted)
			t.mounted = nil
		}
	} else {
		t.mounted = t.reconcile(nil, t.mounted, Element{
			Component: t.root,
			Bounds:    Rect{0, 0, t.width, t.height},
		})
	}
	t.commit()
	t.renders.Add(1)
}

// RenderDirty re-renders the components that asked for an update since the
// last pass, each together with its subtree, and commits. A component
// drawing outside its own bounds, or sharing them with a sibling, must be
// re-rendered through Render instead. After a resize or a root swap, or
// before the first pass, RenderDirty falls back to Render.
func (t *Tree) RenderDirty() {
	if t.mounted == nil || t.layout.Load() {
		t.Render()
		return
	}
	t.pending.Store(false)
	rendered := t.renderDirty(t.mounted)
	t.commit()
	t.renders.Add(1)
	t.logger.WithField("components", rendered).Trace("partial render")
}

func (t *Tree) renderDirty(n *node) int {
	if n.gone {
		return 0
	}
	if n.dirty.Load() {
		t.buffer.Fill(n.bounds, ' ', backend.DefaultStyle())
		t.reconcile(n.parent, n, Element{Component: n.component, Bounds: n.bounds, Key: n.key})
		return 1
	}
	rendered := 0
	for _, child := range n.children {
		rendered += t.renderDirty(child)
	}
	return rendered
}

// Settle re-renders dirty components until none asks for another pass, up
// to limit passes. It returns the number of passes run.
func (t *Tree) Settle(limit int) int {
	passes := 0
	for passes < limit {
		t.RenderDirty()
		passes++
		if !t.NeedsRender() {
			break
		}
	}
	return passes
}

// Unmount tears down every mounted component.
func (t *Tree) Unmount() {
	if t.mounted != nil {
		t.unmount(t.mounted)
		t.mounted = nil
	}
	t.commit()
}

// HandleMessage offers msg to mounted components, deepest first, until one
// handles it.
func (t *Tree) HandleMessage(msg Message) HandleResult {
	if t.mounted == nil {
		return Unhandled()
	}
	return t.mounted.dispatch(msg)
}

func (t *Tree) commit() {
	t.effects.Drain(maxCommitPasses)
}

func (t *Tree) invalidate() {
	t.pending.Store(true)
	if fn := t.onInvalidate; fn != nil {
		fn()
	}
}

// reconcile renders el into existing when it can be reused, or into a
// freshly mounted node otherwise. Children render inside the parent's
// render, so their commit effects are queued before the parent's.
func (t *Tree) reconcile(parent *node, existing *node, el Element) *node {
	kind := reflect.TypeOf(el.Component)
	n := existing
	if n == nil || n.kind != kind || n.key != el.Key {
		if n != nil {
			t.unmount(n)
		}
		n = t.mount(parent, el)
	} else if !sameInstance(n.component, el.Component) {
		detachComponent(n.component)
		n.component = el.Component
		attachComponent(n.component, t.loop)
	}
	n.bounds = el.Bounds
	n.dirty.Store(false)

	ctx := &RenderContext{
		Scope:    n.scope,
		Buffer:   t.buffer,
		Bounds:   el.Bounds,
		Loop:     t.loop,
	}
	n.scope.BeginRender()
	children := n.component.Render(ctx)
	n.children = t.reconcileChildren(n, n.children, children)
	n.scope.EndRender()
	return n
}

func (t *Tree) reconcileChildren(parent *node, old []*node, elements []Element) []*node {
	byKey := make(map[string]*node)
	for _, child := range old {
		if child.key != "" {
			byKey[child.key] = child
		}
	}
	used := make(map[*node]bool, len(old))
	next := make([]*node, 0, len(elements))
	for i, el := range elements {
		if el.Component == nil {
			continue
		}
		var prev *node
		if el.Key != "" {
			prev = byKey[el.Key]
		} else if i < len(old) && old[i].key == "" {
			prev = old[i]
		}
		if prev != nil && used[prev] {
			prev = nil
		}
		child := t.reconcile(parent, prev, el)
		used[child] = true
		next = append(next, child)
	}
	for _, child := range old {
		if !used[child] && !child.gone {
			t.unmount(child)
		}
	}
	return next
}

func (t *Tree) mount(parent *node, el Element) *node {
	n := &node{
		tree:      t,
		parent:    parent,
		component: el.Component,
		kind:      reflect.TypeOf(el.Component),
		key:       el.Key,
	}
	var parentScope *hooks.Scope
	if parent != nil {
		parentScope = parent.scope
	}
	n.scope = hooks.NewScope(n, parentScope)
	attachComponent(n.component, t.loop)
	t.nodes.Add(1)
	t.logger.WithField("component", n.kind.String()).Trace("component mounted")
	return n
}

// unmount tears down n's subtree, children first.
func (t *Tree) unmount(n *node) {
	if n == nil || n.gone {
		return
	}
	for _, child := range n.children {
		t.unmount(child)
	}
	n.children = nil
	n.gone = true
	n.scope.Unmount()
	detachComponent(n.component)
	t.nodes.Add(-1)
	t.logger.WithField("component", n.kind.String()).Trace("component unmounted")
}

// node is a mounted component. It is the hooks.Host of its scope.
type node struct {
	tree      *Tree
	parent    *node
	component Component
	kind      reflect.Type
	key       string
	bounds    Rect
	scope     *hooks.Scope
	children  []*node
	gone      bool
	dirty     atomic.Bool
}

// ScheduleEffect implements hooks.Host.
func (n *node) ScheduleEffect(fn func()) {
	n.tree.effects.Schedule(fn)
}

// ForceUpdate implements hooks.Host. It marks n for the next RenderDirty.
func (n *node) ForceUpdate() {
	n.dirty.Store(true)
	n.tree.invalidate()
}

func (n *node) dispatch(msg Message) HandleResult {
	for _, child := range n.children {
		if result := child.dispatch(msg); result.Handled {
			return result
		}
	}
	if h, ok := n.component.(MessageHandler); ok {
		return h.HandleMessage(msg)
	}
	return Unhandled()
}
