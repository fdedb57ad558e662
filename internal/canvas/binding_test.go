package canvas

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/canvai/canvai/internal/host"
)

// fakeCanvas counts draws; good enough for binding and store tests.
type fakeCanvas struct {
	id    int32
	draws int
	bound host.Renderer
}

func (c *fakeCanvas) ID() int32            { return c.id }
func (c *fakeCanvas) Draw(img image.Image) { c.draws++ }
func (c *fakeCanvas) Bind(r host.Renderer) { c.bound = r }

func TestBinding_DrawsExactlyOnce(t *testing.T) {
	b := NewBinding(solidImage(TileWidth, TileHeight, color.White))
	c := &fakeCanvas{id: 7}

	assert.False(t, b.Rendered())

	b.Render(c)
	b.Render(c)
	b.Render(c)

	assert.Equal(t, 1, c.draws)
	assert.True(t, b.Rendered())
}
