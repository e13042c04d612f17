package runtime

// Bindable components receive the app Loop when they enter a tree that
// belongs to an App.
type Bindable interface {
	Bind(loop Loop)
}

// Unbindable components drop the Loop when they leave the tree.
type Unbindable interface {
	Unbind()
}

func bindComponent(c Component, loop Loop) {
	if !loop.Attached() {
		return
	}
	if b, ok := c.(Bindable); ok {
		b.Bind(loop)
	}
}

func unbindComponent(c Component) {
	if u, ok := c.(Unbindable); ok {
		u.Unbind()
	}
}
