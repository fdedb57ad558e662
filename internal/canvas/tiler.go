// Package canvas owns the in-world image pipeline: the pure tiling
// transform, the one-shot render bindings, the persistent asset store with
// restart recovery and age-based cleanup, and the last-seen usage tracker.
package canvas

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/canvai/canvai/internal/common"
)

// The host's fixed tile resolution. Every rendered asset is a multiple of
// this, and every individual tile is exactly this size.
const (
	TileWidth  = 128
	TileHeight = 128
)

// ResizeToGrid scales src to exactly cols*TileWidth by rows*TileHeight
// pixels with Catmull-Rom interpolation. The input aspect ratio is not
// preserved; distortion is accepted, not corrected.
func ResizeToGrid(src image.Image, cols, rows int) (*image.RGBA, error) {
	if cols < 1 || rows < 1 {
		return nil, common.ErrInvalidGrid
	}

	dst := image.NewRGBA(image.Rect(0, 0, cols*TileWidth, rows*TileHeight))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// SplitIntoTiles slices a grid-sized raster into a row-major [rows][cols]
// matrix of TileWidth×TileHeight tiles. The input must be exactly the size
// ResizeToGrid produces for the same cols and rows.
func SplitIntoTiles(img *image.RGBA, cols, rows int) ([][]image.Image, error) {
	if cols < 1 || rows < 1 {
		return nil, common.ErrInvalidGrid
	}
	bounds := img.Bounds()
	if bounds.Dx() != cols*TileWidth || bounds.Dy() != rows*TileHeight {
		return nil, common.ErrInvalidGrid
	}

	tiles := make([][]image.Image, rows)
	for row := 0; row < rows; row++ {
		tiles[row] = make([]image.Image, cols)
		for col := 0; col < cols; col++ {
			r := image.Rect(
				bounds.Min.X+col*TileWidth,
				bounds.Min.Y+row*TileHeight,
				bounds.Min.X+(col+1)*TileWidth,
				bounds.Min.Y+(row+1)*TileHeight,
			)
			tiles[row][col] = img.SubImage(r)
		}
	}
	return tiles, nil
}
