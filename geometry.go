package panlabel

// Geometry: axis-aligned bounding boxes tagged with a coordinate space so that pixel and
// normalized coordinates cannot be mixed without an explicit, image-size-aware conversion.
//
// Go has no phantom types, so the space tag is enforced the way spec.md §9 suggests as the
// fallback: two distinct nominal struct types, PixelBBox and NormalizedBBox, with explicit
// conversion functions that take a reference image size. There is no implicit conversion
// between them.

import "fmt"

// Point is a 2D coordinate pair.
type Point struct {
	X, Y float64
}

// PixelBBox is an axis-aligned rectangle in absolute pixel coordinates, stored as min/max
// corners. The zero value is not a valid PixelBBox; use NewPixelBBox or FromCOCO.
type PixelBBox struct {
	Min Point
	Max Point
}

// NormalizedBBox is an axis-aligned rectangle with coordinates in [0,1], fractions of an
// image's width/height. The zero value is not a valid NormalizedBBox; use NewNormalizedBBox.
type NormalizedBBox struct {
	Min Point
	Max Point
}

// Width returns Max.X - Min.X.
func (b PixelBBox) Width() float64 { return b.Max.X - b.Min.X }

// Height returns Max.Y - Min.Y.
func (b PixelBBox) Height() float64 { return b.Max.Y - b.Min.Y }

// Area returns Width() * Height(). Degenerate (or inverted) boxes yield a non-positive area.
func (b PixelBBox) Area() float64 { return b.Width() * b.Height() }

// Width returns Max.X - Min.X.
func (b NormalizedBBox) Width() float64 { return b.Max.X - b.Min.X }

// Height returns Max.Y - Min.Y.
func (b NormalizedBBox) Height() float64 { return b.Max.Y - b.Min.Y }

// NewPixelBBox constructs a pixel-space bounding box from corner coordinates. It rejects
// inverted rectangles (x2<x1 or y2<y1) and negative coordinates; bounds-against-image checks
// are the validator's job (§4.2), not the constructor's, since the image is not always known
// at construction time.
func NewPixelBBox(x1, y1, x2, y2 float64) (PixelBBox, error) {
	if x2 < x1 || y2 < y1 {
		return PixelBBox{}, fmt.Errorf("panlabel: inverted bbox (%v,%v)-(%v,%v)", x1, y1, x2, y2)
	}
	if x1 < 0 || y1 < 0 {
		return PixelBBox{}, fmt.Errorf("panlabel: negative bbox origin (%v,%v)", x1, y1)
	}
	return PixelBBox{Min: Point{x1, y1}, Max: Point{x2, y2}}, nil
}

// FromCOCO builds a pixel-space bounding box from COCO-style [x,y,w,h]. It fails when w<0 or
// h<0, per §4.1.
func FromCOCO(x, y, w, h float64) (PixelBBox, error) {
	if w < 0 || h < 0 {
		return PixelBBox{}, fmt.Errorf("panlabel: negative coco bbox dimension w=%v h=%v", w, h)
	}
	return NewPixelBBox(x, y, x+w, y+h)
}

// ToCOCO returns the [x,y,w,h] representation of a pixel-space bbox.
func (b PixelBBox) ToCOCO() (x, y, w, h float64) {
	return b.Min.X, b.Min.Y, b.Width(), b.Height()
}

// NewNormalizedBBox constructs a normalized-space bounding box from corner coordinates,
// typically in [0,1]. It only rejects inversion; it does not check or clamp coordinates to
// [0,1].
func NewNormalizedBBox(x1, y1, x2, y2 float64) (NormalizedBBox, error) {
	if x2 < x1 || y2 < y1 {
		return NormalizedBBox{}, fmt.Errorf("panlabel: inverted bbox (%v,%v)-(%v,%v)", x1, y1, x2, y2)
	}
	return NormalizedBBox{Min: Point{x1, y1}, Max: Point{x2, y2}}, nil
}

// ImageSize is a reference image size used for cross-space bbox conversion.
type ImageSize struct {
	Width, Height uint32
}

// ToNormalized converts a pixel-space bbox into normalized space given the image it is
// relative to. This and FromNormalized are the only two cross-space conversions (§4.1).
func (b PixelBBox) ToNormalized(size ImageSize) NormalizedBBox {
	w, h := float64(size.Width), float64(size.Height)
	return NormalizedBBox{
		Min: Point{b.Min.X / w, b.Min.Y / h},
		Max: Point{b.Max.X / w, b.Max.Y / h},
	}
}

// FromNormalized converts a normalized-space bbox into pixel space given the image it is
// relative to.
func FromNormalized(b NormalizedBBox, size ImageSize) PixelBBox {
	w, h := float64(size.Width), float64(size.Height)
	return PixelBBox{
		Min: Point{b.Min.X * w, b.Min.Y * h},
		Max: Point{b.Max.X * w, b.Max.Y * h},
	}
}
