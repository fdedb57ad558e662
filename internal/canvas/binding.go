package canvas

import (
	"image"
	"sync/atomic"

	"github.com/canvai/canvai/internal/host"
)

// Binding is the render callback for one canvas: a two-state machine,
// Pending → Rendered. The host invokes Render repeatedly; the draw happens
// exactly once, on the first invocation, and every later call is a no-op.
// Redrawing a static image each tick would be pure waste.
type Binding struct {
	img      image.Image
	rendered atomic.Bool
}

// NewBinding returns a Binding in the Pending state holding img.
func NewBinding(img image.Image) *Binding {
	return &Binding{img: img}
}

// Render draws the image on the first call and transitions to Rendered.
func (b *Binding) Render(c host.Canvas) {
	if !b.rendered.CompareAndSwap(false, true) {
		return
	}
	c.Draw(b.img)
}

// Rendered reports whether the one draw has happened.
func (b *Binding) Rendered() bool {
	return b.rendered.Load()
}
