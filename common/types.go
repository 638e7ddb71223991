// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// Size is the pixel size of a drawable surface.
type Size struct {
	Width  float32
	Height float32
}

// Aspect returns Width/Height, or 1 when the height is not positive.
func (s Size) Aspect() float32 {
	if s.Height <= 0 {
		return 1
	}
	return s.Width / s.Height
}

// Empty reports whether either dimension is zero or negative, as happens when a window is minimized.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// ImportedTexture represents texture data loaded from disk or memory.
// For in-memory textures the Data field contains raw image bytes.
// For external textures, the Path field contains the file path.
type ImportedTexture struct {
	// Name is an identifier for this texture (e.g., "rock1", "wood2").
	Name string

	// Path is the file path for external textures (empty for in-memory).
	Path string

	// Data contains raw image bytes (PNG/JPEG).
	Data []byte

	// Width is the texture width in pixels (populated after Decode).
	Width int

	// Height is the texture height in pixels (populated after Decode).
	Height int
}

// Decode decodes the texture to raw RGBA pixel data.
// Uses either Data bytes or loads from Path on disk.
// Supports PNG and JPEG formats.
// Reference: https://pkg.go.dev/image
//
// Returns:
//   - TextureStagingData: raw RGBA pixel data (4 bytes per pixel, row-major order) with its dimensions
//   - error: error if decoding fails
func (t *ImportedTexture) Decode() (TextureStagingData, error) {
	if t == nil {
		return TextureStagingData{}, fmt.Errorf("texture is nil")
	}

	var img image.Image
	var err error

	if len(t.Data) > 0 {
		img, _, err = image.Decode(bytes.NewReader(t.Data))
		if err != nil {
			return TextureStagingData{}, fmt.Errorf("failed to decode image %s: %w", t.Name, err)
		}
	} else if t.Path != "" {
		file, fileErr := os.Open(t.Path)
		if fileErr != nil {
			return TextureStagingData{}, fmt.Errorf("failed to open texture file %s: %w", t.Path, fileErr)
		}
		defer file.Close()

		img, _, err = image.Decode(file)
		if err != nil {
			return TextureStagingData{}, fmt.Errorf("failed to decode texture file %s: %w", t.Path, err)
		}
	} else {
		return TextureStagingData{}, fmt.Errorf("texture %s has neither data nor path", t.Name)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	t.Width = width
	t.Height = height

	return TextureStagingData{Pixels: rgba.Pix, Width: uint32(width), Height: uint32(height)}, nil
}

// Checkerboard builds a size×size RGBA texture alternating between two colors in cells of cell pixels.
//
// Parameters:
//   - size: width and height of the texture in pixels
//   - cell: edge length of one checker cell in pixels (values below 1 are treated as 1)
//   - a, b: the two RGBA colors
//
// Returns:
//   - TextureStagingData: the generated pixel data
func Checkerboard(size, cell uint32, a, b [4]uint8) TextureStagingData {
	if cell == 0 {
		cell = 1
	}
	pixels := make([]byte, 0, size*size*4)
	for y := uint32(0); y < size; y++ {
		for x := uint32(0); x < size; x++ {
			c := a
			if ((x/cell)+(y/cell))%2 == 1 {
				c = b
			}
			pixels = append(pixels, c[0], c[1], c[2], c[3])
		}
	}
	return TextureStagingData{Pixels: pixels, Width: size, Height: size}
}
