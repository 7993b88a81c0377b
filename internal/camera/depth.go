package camera

import "fmt"

// DepthImage is a dense per-pixel linear depth map in meters, row-major.
// A zero or non-finite value means no return (dropout or saturation).
// Frames arrive already decoded; this package never touches wire encodings.
type DepthImage struct {
	Width  int
	Height int
	Data   []float32
}

// NewDepthImage allocates a zeroed depth image.
func NewDepthImage(width, height int) *DepthImage {
	return &DepthImage{
		Width:  width,
		Height: height,
		Data:   make([]float32, width*height),
	}
}

// DepthImageFrom wraps an existing buffer. The buffer length must match
// width*height.
func DepthImageFrom(width, height int, data []float32) (*DepthImage, error) {
	if len(data) != width*height {
		return nil, fmt.Errorf("depth image: buffer length %d does not match %dx%d", len(data), width, height)
	}
	return &DepthImage{Width: width, Height: height, Data: data}, nil
}

// At returns the depth at pixel (u, v). Callers must bounds-check first;
// see Contains.
func (d *DepthImage) At(u, v int) float32 {
	return d.Data[v*d.Width+u]
}

// Set writes the depth at pixel (u, v).
func (d *DepthImage) Set(u, v int, depth float32) {
	d.Data[v*d.Width+u] = depth
}

// Contains reports whether pixel (u, v) lies inside the image.
func (d *DepthImage) Contains(u, v int) bool {
	return u >= 0 && u < d.Width && v >= 0 && v < d.Height
}
