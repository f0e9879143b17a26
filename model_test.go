package panlabel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatasetPreservesInsertionOrder(t *testing.T) {
	d := NewDataset()
	d.AddImage(Image{ID: 3, FileName: "c.jpg"})
	d.AddImage(Image{ID: 1, FileName: "a.jpg"})
	d.AddImage(Image{ID: 2, FileName: "b.jpg"})

	inOrder := d.ImagesInOrder()
	assert.Equal(t, []ImageID{3, 1, 2}, []ImageID{inOrder[0].ID, inOrder[1].ID, inOrder[2].ID})

	ascending := d.ImagesByIDAscending()
	assert.Equal(t, []ImageID{1, 2, 3}, []ImageID{ascending[0].ID, ascending[1].ID, ascending[2].ID})
}

func TestDatasetRecordsDuplicateImageID(t *testing.T) {
	d := NewDataset()
	d.AddImage(Image{ID: 1, FileName: "a.jpg"})
	d.AddImage(Image{ID: 1, FileName: "a-again.jpg"})

	report := Validate(d, DefaultBoundsTolerance)
	var found bool
	for _, issue := range report.Issues {
		if issue.Code == CodeDuplicateImageID {
			found = true
		}
	}
	assert.True(t, found, "expected duplicate_image_id issue")
	// The second AddImage call overwrites the first under the same ID rather than appending.
	assert.Len(t, d.ImagesInOrder(), 1)
}

func TestAnnotationsForImage(t *testing.T) {
	d := NewDataset()
	d.AddImage(Image{ID: 1, FileName: "a.jpg", Width: 100, Height: 100})
	d.AddImage(Image{ID: 2, FileName: "b.jpg", Width: 100, Height: 100})
	bbox, _ := NewPixelBBox(0, 0, 10, 10)
	d.AddAnnotation(Annotation{ID: 1, ImageID: 1, CategoryID: 1, BBox: bbox})
	d.AddAnnotation(Annotation{ID: 2, ImageID: 2, CategoryID: 1, BBox: bbox})
	d.AddAnnotation(Annotation{ID: 3, ImageID: 1, CategoryID: 1, BBox: bbox})

	anns := d.AnnotationsForImage(1)
	assert.Len(t, anns, 2)
	assert.Equal(t, AnnotationID(1), anns[0].ID)
	assert.Equal(t, AnnotationID(3), anns[1].ID)
}

func TestSortedAttributeKeys(t *testing.T) {
	attrs := map[string]string{"z": "1", "a": "2", "m": "3"}
	assert.Equal(t, []string{"a", "m", "z"}, SortedAttributeKeys(attrs))
}
