package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTree_BindRoot(t *testing.T) {
	child := &lifecycleComponent{}
	root := &lifecycleComponent{children: []Component{child}}
	tree := NewTree(10, 5)
	tree.SetLoop(NewApp(AppConfig{}).Loop())

	tree.SetRoot(root)
	tree.Render()
	tree.Render()
	assert.Equal(t, 1, root.bound)
	assert.Equal(t, 1, child.bound)

	tree.SetRoot(nil)
	tree.Render()
	assert.Equal(t, 1, root.unbound)
	assert.Equal(t, 1, child.unbound)
}

func TestTree_DetachedLoopSkipsBind(t *testing.T) {
	root := &lifecycleComponent{}
	tree := NewTree(10, 5)
	tree.SetRoot(root)
	tree.Render()
	assert.Zero(t, root.bound, "no bind outside an app")
	assert.Equal(t, 1, root.mounted)
}
