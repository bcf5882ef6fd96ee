package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpriteBatchCoalescesSameSourceDraws(t *testing.T) {
	var flushed [][]Sprite
	b := NewSpriteBatch(func(sprites []Sprite, source spriteSourceHandle) error {
		flushed = append(flushed, sprites)
		return nil
	})

	b.Begin()
	b.Draw(Sprite{Source: 1})
	b.Draw(Sprite{Source: 1})
	b.Draw(Sprite{Source: 1})
	require.NoError(t, b.End())

	require.Len(t, flushed, 1)
	assert.Len(t, flushed[0], 3)
}

func TestSpriteBatchSplitsOnSourceChange(t *testing.T) {
	var calls int
	b := NewSpriteBatch(func(sprites []Sprite, source spriteSourceHandle) error {
		calls++
		return nil
	})

	b.Begin()
	b.Draw(Sprite{Source: 1})
	b.Draw(Sprite{Source: 2})
	b.Draw(Sprite{Source: 1})
	require.NoError(t, b.End())

	assert.Equal(t, 3, calls, "each source change starts a new group")
}

func TestSpriteBatchDrawCallCountReflectsCoalescing(t *testing.T) {
	b := NewSpriteBatch(nil)
	b.Begin()
	b.Draw(Sprite{Source: 1})
	b.Draw(Sprite{Source: 1})
	b.Draw(Sprite{Source: 2})
	assert.Equal(t, 2, b.DrawCallCount())
}

func TestSpriteBatchDoubleBeginPanics(t *testing.T) {
	b := NewSpriteBatch(nil)
	b.Begin()
	assert.Panics(t, func() { b.Begin() })
}

func TestSpriteBatchDrawWithoutBeginPanics(t *testing.T) {
	b := NewSpriteBatch(nil)
	assert.Panics(t, func() { b.Draw(Sprite{}) })
}

func TestSpriteBatchEndClearsEntriesForReuse(t *testing.T) {
	b := NewSpriteBatch(func(sprites []Sprite, source spriteSourceHandle) error { return nil })
	b.Begin()
	b.Draw(Sprite{Source: 1})
	require.NoError(t, b.End())
	assert.Equal(t, 0, b.DrawCallCount())

	b.Begin()
	b.Draw(Sprite{Source: 5})
	assert.Equal(t, 1, b.DrawCallCount())
}
