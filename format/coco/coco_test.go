package coco

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorable/panlabel"
)

const fixture = `{
  "info": {"description": "demo", "year": "2024"},
  "licenses": [{"id": 1, "name": "CC0", "url": "https://example.com"}],
  "images": [{"id": 1, "file_name": "a.jpg", "width": 640, "height": 480, "license": 1}],
  "categories": [{"id": 1, "name": "person"}],
  "annotations": [{"id": 1, "image_id": 1, "category_id": 1, "bbox": [50, 125, 50, 50], "area": 2500, "iscrowd": 0, "score": 0.9}]
}`

func TestReadParsesYearAsStringOrNumber(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))

	d, err := (adapter{}).Read(path)
	require.NoError(t, err)
	require.NotNil(t, d.Info)
	assert.Equal(t, 2024, d.Info.Year)
	assert.Equal(t, "demo", d.Info.Description)
}

func TestReadConvertsCOCOBBoxToXYXY(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))

	d, err := (adapter{}).Read(path)
	require.NoError(t, err)
	ann := d.Annotations[1]
	assert.Equal(t, 50.0, ann.BBox.Min.X)
	assert.Equal(t, 125.0, ann.BBox.Min.Y)
	assert.Equal(t, 100.0, ann.BBox.Max.X)
	assert.Equal(t, 175.0, ann.BBox.Max.Y)
	require.NotNil(t, ann.Confidence)
	assert.Equal(t, 0.9, *ann.Confidence)
}

func TestWriteRoundTripsBBoxAndIsDeterministicallyOrdered(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(in, []byte(fixture), 0o644))

	d, err := (adapter{}).Read(in)
	require.NoError(t, err)

	out := filepath.Join(dir, "out.json")
	require.NoError(t, (adapter{}).Write(out, d))

	reread, err := (adapter{}).Read(out)
	require.NoError(t, err)
	assert.Equal(t, d.Annotations[1].BBox, reread.Annotations[1].BBox)
}

func TestWriteDropsAnnotationAttributesSilently(t *testing.T) {
	d := panlabel.NewDataset()
	d.AddImage(panlabel.Image{ID: 1, FileName: "a.jpg", Width: 10, Height: 10})
	d.AddCategory(panlabel.Category{ID: 1, Name: "cat"})
	bbox, _ := panlabel.NewPixelBBox(0, 0, 5, 5)
	d.AddAnnotation(panlabel.Annotation{ID: 1, ImageID: 1, CategoryID: 1, BBox: bbox,
		Attributes: map[string]string{"occluded": "1"}})

	dir := t.TempDir()
	out := filepath.Join(dir, "out.json")
	require.NoError(t, (adapter{}).Write(out, d))

	reread, err := (adapter{}).Read(out)
	require.NoError(t, err)
	assert.Empty(t, reread.Annotations[1].Attributes)
}
