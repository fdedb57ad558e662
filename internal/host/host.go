// Package host declares the contracts the surrounding simulation platform
// fulfills: a two-lane scheduler (one cooperative main thread owning world
// state, a worker pool for I/O), and canvases: host-owned raster surfaces
// addressed by host-assigned integer ids.
//
// Canvas ids are weak references: the host owns their uniqueness and may
// recycle them across restarts, so a lookup miss is expected and never an
// integrity violation.
package host

import "image"

// Scheduler is the host's execution model. Anything touching host-owned
// state must go through RunMain; RunAsync is the unordered worker pool for
// network and disk I/O. Both are fire-and-continue: neither blocks the
// caller waiting for fn.
type Scheduler interface {
	RunMain(fn func())
	RunAsync(fn func())
}

// Renderer is a render callback bound to a canvas. The host invokes it
// repeatedly (for example once per viewer per refresh tick); implementations
// decide when anything is actually drawn.
type Renderer interface {
	Render(c Canvas)
}

// Canvas is one host-owned raster surface.
type Canvas interface {
	// ID returns the host-assigned identifier.
	ID() int32

	// Draw renders img onto the surface. Main thread only.
	Draw(img image.Image)

	// Bind attaches the canvas's single render callback, replacing any
	// previous one. Main thread only.
	Bind(r Renderer)
}

// CanvasRegistry resolves and allocates canvases. Main thread only.
type CanvasRegistry interface {
	// CanvasByID returns the canvas for a host id, or false if the host no
	// longer recognizes it.
	CanvasByID(id int32) (Canvas, bool)

	// CreateCanvas allocates a fresh canvas with a new host id.
	CreateCanvas() (Canvas, error)
}
