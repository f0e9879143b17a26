package panlabel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInspectCountsAndHistogram(t *testing.T) {
	d := NewDataset()
	d.AddImage(Image{ID: 1, FileName: "a.jpg", Width: 100, Height: 100})
	d.AddCategory(Category{ID: 1, Name: "cat"})
	d.AddCategory(Category{ID: 2, Name: "dog"})
	bbox, _ := NewPixelBBox(0, 0, 10, 10)
	d.AddAnnotation(Annotation{ID: 1, ImageID: 1, CategoryID: 1, BBox: bbox})
	d.AddAnnotation(Annotation{ID: 2, ImageID: 1, CategoryID: 2, BBox: bbox})

	report := Inspect(d, 10, DefaultBoundsTolerance)
	assert.Equal(t, 1, report.ImageCount)
	assert.Equal(t, 2, report.AnnotationCount)
	assert.Equal(t, 1, report.LabelHistogram["cat"])
	assert.Equal(t, 1, report.LabelHistogram["dog"])
	assert.Len(t, report.TopCooccurrence, 1)
	assert.Equal(t, "cat", report.TopCooccurrence[0].LabelA)
	assert.Equal(t, "dog", report.TopCooccurrence[0].LabelB)
}

func TestInspectDetectsDegenerateAndOutOfBoundsBoxes(t *testing.T) {
	d := NewDataset()
	d.AddImage(Image{ID: 1, FileName: "a.jpg", Width: 100, Height: 100})
	d.AddCategory(Category{ID: 1, Name: "cat"})
	degenerate := PixelBBox{Min: Point{0, 0}, Max: Point{0, 10}}
	outOfBounds, _ := NewPixelBBox(90, 90, 150, 150)
	d.AddAnnotation(Annotation{ID: 1, ImageID: 1, CategoryID: 1, BBox: degenerate})
	d.AddAnnotation(Annotation{ID: 2, ImageID: 1, CategoryID: 1, BBox: outOfBounds})

	report := Inspect(d, 10, DefaultBoundsTolerance)
	assert.Equal(t, 1, report.BBoxQuality.DegenerateCount)
	assert.Equal(t, 1, report.BBoxQuality.OutOfBoundsCount)
}

func TestInspectAreaStatistics(t *testing.T) {
	d := NewDataset()
	d.AddImage(Image{ID: 1, FileName: "a.jpg", Width: 100, Height: 100})
	d.AddCategory(Category{ID: 1, Name: "cat"})
	small, _ := NewPixelBBox(0, 0, 10, 10)   // area 100
	medium, _ := NewPixelBBox(0, 0, 20, 20)  // area 400
	large, _ := NewPixelBBox(0, 0, 30, 30)   // area 900
	d.AddAnnotation(Annotation{ID: 1, ImageID: 1, CategoryID: 1, BBox: small})
	d.AddAnnotation(Annotation{ID: 2, ImageID: 1, CategoryID: 1, BBox: medium})
	d.AddAnnotation(Annotation{ID: 3, ImageID: 1, CategoryID: 1, BBox: large})

	report := Inspect(d, 10, DefaultBoundsTolerance)
	assert.Equal(t, 100.0, report.BBoxQuality.AreaMin)
	assert.Equal(t, 400.0, report.BBoxQuality.AreaMedian)
	assert.Equal(t, 900.0, report.BBoxQuality.AreaMax)
}

func TestInspectTopNLimitsCooccurrence(t *testing.T) {
	d := NewDataset()
	d.AddImage(Image{ID: 1, FileName: "a.jpg", Width: 100, Height: 100})
	names := []string{"a", "b", "c"}
	for i, n := range names {
		d.AddCategory(Category{ID: CategoryID(i + 1), Name: n})
	}
	bbox, _ := NewPixelBBox(0, 0, 10, 10)
	for i := range names {
		d.AddAnnotation(Annotation{ID: AnnotationID(i + 1), ImageID: 1, CategoryID: CategoryID(i + 1), BBox: bbox})
	}

	report := Inspect(d, 1, DefaultBoundsTolerance)
	assert.Len(t, report.TopCooccurrence, 1)
}
