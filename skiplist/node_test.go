package skiplist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodePackedState(t *testing.T) {
	n := newNode[int, string](7, "seven", 5)
	assert.Equal(t, 5, n.height())
	assert.False(t, n.removed())
	assert.Equal(t, 0, n.refs())
}

func TestNodeRefCounting(t *testing.T) {
	n := newNode[int, string](1, "one", 2)

	assert.Equal(t, 1, n.addRef())
	assert.Equal(t, 2, n.addRef())

	refs, ok := n.tryAddRef()
	require.True(t, ok)
	assert.Equal(t, 3, refs)

	assert.Equal(t, 2, n.subRef())
	assert.Equal(t, 1, n.subRef())
	assert.Equal(t, 0, n.subRef())

	refs, ok = n.tryAddRef()
	assert.False(t, ok)
	assert.Equal(t, 0, refs)
}

func TestNodeSubRefUnderflowPanics(t *testing.T) {
	n := newNode[int, string](1, "one", 1)
	assert.Panics(t, func() { n.subRef() })
}

func TestNodeSetRemovedIsOneShot(t *testing.T) {
	n := newNode[int, string](1, "one", 1)
	assert.True(t, n.setRemoved())
	assert.True(t, n.removed())
	assert.False(t, n.setRemoved())
}

func TestNodeTagLevels(t *testing.T) {
	n := newNode[int, string](1, "one", 3)
	failed, ok := n.tagLevels(tagRemoving)
	require.True(t, ok)
	assert.Equal(t, -1, failed)
	for i := 0; i < 3; i++ {
		assert.Equal(t, tagRemoving, n.levels[i].loadTag())
	}

	// Tagging again from tagLive fails immediately at the top level.
	failed, ok = n.tagLevels(tagUnlinked)
	assert.False(t, ok)
	assert.Equal(t, 2, failed)
}

func TestNodeTryRemoveAndTag(t *testing.T) {
	n := newNode[int, string](1, "one", 2)
	assert.True(t, n.tryRemoveAndTag())
	assert.True(t, n.removed())
	assert.Equal(t, tagRemoving, n.levels[0].loadTag())
	assert.Equal(t, tagRemoving, n.levels[1].loadTag())
	assert.False(t, n.tryRemoveAndTag())
}
