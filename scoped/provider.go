package scoped

import (
	"github.com/odvcencio/furry-store/backend"
	"github.com/odvcencio/furry-store/hooks"
	"github.com/odvcencio/furry-store/runtime"
	"github.com/odvcencio/furry-store/state"
)

// Provider returns a component that owns one store for as long as it stays
// mounted and renders child inside its own bounds. Extra options are
// appended to the context's options for this provider only.
func (c *Context[T]) Provider(child runtime.Component, opts ...state.Option[T]) runtime.Component {
	return &provider[T]{ctx: c, child: child, opts: opts}
}

type provider[T any] struct {
	ctx   *Context[T]
	child runtime.Component
	opts  []state.Option[T]
}

func (p *provider[T]) Render(rc *runtime.RenderContext) []runtime.Element {
	e := *hooks.UseRef(rc.Scope, func() *entry[T] {
		return p.build(rc.Scope)
	})
	rc.Scope.Provide(p.ctx.key, e)
	if e.err != nil {
		rc.Text(0, e.err.Error(), backend.DefaultStyle())
		return nil
	}
	if p.child == nil {
		return nil
	}
	return []runtime.Element{runtime.Place(p.child, rc.Bounds)}
}

func (p *provider[T]) build(scope *hooks.Scope) *entry[T] {
	opts := append(append([]state.Option[T]{}, p.ctx.opts...), p.opts...)
	store, err := state.New(p.ctx.init, opts...)
	if err != nil {
		return &entry[T]{err: err}
	}
	scope.OnCleanup(store.Destroy)
	return &entry[T]{store: store}
}
