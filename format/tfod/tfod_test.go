package tfod

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorable/panlabel"
)

const fixture = `filename,width,height,class,xmin,ymin,xmax,ymax
b.jpg,640,480,dog,0.1,0.1,0.3,0.3
a.jpg,640,480,cat,0.0,0.0,0.5,0.5
`

func TestReadAssignsIDsByLexicographicOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))

	d, err := (adapter{}).Read(path)
	require.NoError(t, err)

	// a.jpg sorts before b.jpg, cat before dog: image/category IDs follow lexicographic order
	// regardless of CSV row order (§4.3.2).
	assert.Equal(t, "a.jpg", d.Images[1].FileName)
	assert.Equal(t, "b.jpg", d.Images[2].FileName)
	assert.Equal(t, "cat", d.Categories[1].Name)
	assert.Equal(t, "dog", d.Categories[2].Name)

	// Annotation IDs follow CSV row order: row 1 is b.jpg/dog.
	assert.Equal(t, panlabel.ImageID(2), d.Annotations[1].ImageID)
	assert.Equal(t, panlabel.CategoryID(2), d.Annotations[1].CategoryID)
}

func TestReadRejectsMissingColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("filename,width,height,class,xmin,ymin,xmax\na.jpg,1,1,cat,0,0,1\n"), 0o644))

	_, err := (adapter{}).Read(path)
	var schemaErr *panlabel.SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestWriteOmitsImagesWithoutAnnotations(t *testing.T) {
	d := panlabel.NewDataset()
	d.AddImage(panlabel.Image{ID: 1, FileName: "a.jpg", Width: 100, Height: 100})
	d.AddImage(panlabel.Image{ID: 2, FileName: "empty.jpg", Width: 100, Height: 100})
	d.AddCategory(panlabel.Category{ID: 1, Name: "cat"})
	bbox, _ := panlabel.NewPixelBBox(0, 0, 50, 50)
	d.AddAnnotation(panlabel.Annotation{ID: 1, ImageID: 1, CategoryID: 1, BBox: bbox})

	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")
	require.NoError(t, (adapter{}).Write(out, d))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "empty.jpg")
	assert.Contains(t, string(data), "a.jpg")
}

func TestWriteNormalizesBBoxToImageSize(t *testing.T) {
	d := panlabel.NewDataset()
	d.AddImage(panlabel.Image{ID: 1, FileName: "a.jpg", Width: 100, Height: 200})
	d.AddCategory(panlabel.Category{ID: 1, Name: "cat"})
	bbox, _ := panlabel.NewPixelBBox(10, 20, 60, 120)
	d.AddAnnotation(panlabel.Annotation{ID: 1, ImageID: 1, CategoryID: 1, BBox: bbox})

	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")
	require.NoError(t, (adapter{}).Write(out, d))

	reread, err := (adapter{}).Read(out)
	require.NoError(t, err)
	gotBBox := reread.Annotations[1].BBox
	assert.InDelta(t, 10.0, gotBBox.Min.X, 1e-4)
	assert.InDelta(t, 20.0, gotBBox.Min.Y, 1e-4)
	assert.InDelta(t, 60.0, gotBBox.Max.X, 1e-4)
	assert.InDelta(t, 120.0, gotBBox.Max.Y, 1e-4)
}
