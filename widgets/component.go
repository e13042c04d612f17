package widgets

import (
	"github.com/odvcencio/furry-store/runtime"
	"github.com/odvcencio/furry-store/state"
)

// Component is embedded by widgets that watch state outside the hook
// system. Inside an App its watches redraw the frame after they run, and
// all of them are released when the widget leaves the tree.
type Component struct {
	Loop runtime.Loop
	Subs state.Subscriptions
}

// Bind implements runtime.Bindable.
func (c *Component) Bind(loop runtime.Loop) {
	c.Loop = loop
	c.Subs.SetScheduler(loop.Redrawing())
}

// Unbind implements runtime.Unbindable.
func (c *Component) Unbind() {
	c.Subs.Clear()
	c.Loop = runtime.Loop{}
}

// Observe runs fn after every change of source.
func (c *Component) Observe(source state.Subscribable, fn func()) {
	c.Subs.Observe(source, fn)
}
