package render

import "kneeboard.dev/core/geom"

// spriteVerticesPerQuad is 4 corners per quad, matching the teacher's
// textured-quad sprite batch convention (two triangles via an index
// buffer rather than six raw vertices).
const spriteVerticesPerQuad = 4

// MaxVertices bounds one coalesced group's vertex count; a Draw that
// would push the last group past it starts a new group (spec §4.J's VR compositor
// draws one quad per layer per eye, so this is generous headroom
// rather than a hard limit callers need to tune).
const MaxVertices = 4096

// spriteSourceHandle identifies the GPU shader-resource view a draw
// samples from; consecutive draws sharing the same source coalesce
// into one indexed draw call instead of one call per sprite.
type spriteSourceHandle uintptr

// Sprite is one textured quad: a destination rect in the target's
// pixel space, a source rect in the source texture's texel space, and
// the opacity to multiply the sampled color by (spec §4.I's resolved
// per-layer opacity).
type Sprite struct {
	Source  spriteSourceHandle
	Dest    geom.Rect[int]
	SrcRect geom.Rect[int]
	Opacity float32
}

// spriteBatchEntry groups consecutive same-source sprites so Flush
// can emit one draw call per group.
type spriteBatchEntry struct {
	source  spriteSourceHandle
	sprites []Sprite
}

// SpriteBatch accumulates Draw calls between Begin and End, coalescing
// consecutive draws that share a source into a single indexed draw,
// the way the teacher's renderer batches same-atlas glyph/icon quads
// rather than issuing one draw call per sprite.
type SpriteBatch struct {
	open    bool
	entries []spriteBatchEntry
	flush   func([]Sprite, spriteSourceHandle) error
}

// NewSpriteBatch returns a batch that calls flushFn once per coalesced
// group, in draw order, when End is called. flushFn issues the real
// GPU draw call; kept as an
// injected function so the coalescing logic itself stays pure Go and
// testable without a device.
func NewSpriteBatch(flushFn func(sprites []Sprite, source spriteSourceHandle) error) *SpriteBatch {
	return &SpriteBatch{flush: flushFn}
}

// Begin opens a new batch. Panics if already open, matching
// RenderTarget's "mis-use is a caller bug" convention.
func (b *SpriteBatch) Begin() {
	if b.open {
		panic("render: SpriteBatch.Begin called while already open")
	}
	b.open = true
	b.entries = b.entries[:0]
}

// Draw appends a sprite to the batch, coalescing into the last group
// if it shares a source and has room.
func (b *SpriteBatch) Draw(s Sprite) {
	if !b.open {
		panic("render: SpriteBatch.Draw called outside Begin/End")
	}
	if n := len(b.entries); n > 0 {
		last := &b.entries[n-1]
		if last.source == s.Source && len(last.sprites)*spriteVerticesPerQuad+spriteVerticesPerQuad <= MaxVertices {
			last.sprites = append(last.sprites, s)
			return
		}
	}
	b.entries = append(b.entries, spriteBatchEntry{source: s.Source, sprites: []Sprite{s}})
}

// End flushes every coalesced group in draw order and closes the
// batch.
func (b *SpriteBatch) End() error {
	if !b.open {
		panic("render: SpriteBatch.End called while not open")
	}
	defer func() { b.open = false }()

	for _, e := range b.entries {
		if b.flush == nil {
			continue
		}
		if err := b.flush(e.sprites, e.source); err != nil {
			return err
		}
	}
	b.entries = b.entries[:0]
	return nil
}

// DrawCallCount reports how many coalesced groups the current batch
// would issue, for tests asserting coalescing behavior. An End that
// returns nil empties the batch, so it reports 0 afterwards.
func (b *SpriteBatch) DrawCallCount() int { return len(b.entries) }
