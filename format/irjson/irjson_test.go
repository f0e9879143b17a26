package irjson

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorable/panlabel"
)

func buildDataset() *panlabel.Dataset {
	d := panlabel.NewDataset()
	d.Info = &panlabel.Info{Name: "demo", Description: "a set", Year: 2024,
		Attributes: map[string]string{"source": "test"}}
	d.Licenses = []panlabel.License{{ID: 1, Name: "CC0", URL: "https://example.com"}}
	d.AddImage(panlabel.Image{ID: 1, FileName: "a.jpg", Width: 640, Height: 480})
	d.AddCategory(panlabel.Category{ID: 1, Name: "person", Supercategory: "animal"})
	bbox, _ := panlabel.NewPixelBBox(10, 20, 30, 40)
	score := 0.75
	d.AddAnnotation(panlabel.Annotation{
		ID: 1, ImageID: 1, CategoryID: 1, BBox: bbox, Confidence: &score,
		Attributes: map[string]string{"occluded": "1"},
	})
	return d
}

func TestWriteThenReadIsLossless(t *testing.T) {
	d := buildDataset()
	dir := t.TempDir()
	path := filepath.Join(dir, "ir.json")

	require.NoError(t, (adapter{}).Write(path, d))
	reread, err := (adapter{}).Read(path)
	require.NoError(t, err)

	assert.Equal(t, d.Info, reread.Info)
	assert.Equal(t, d.Licenses, reread.Licenses)
	assert.Equal(t, d.Images, reread.Images)
	assert.Equal(t, d.Categories, reread.Categories)
	assert.Equal(t, d.Annotations, reread.Annotations)
}

func TestWriteProducesStableByteOutput(t *testing.T) {
	d := buildDataset()
	dir := t.TempDir()
	path1 := filepath.Join(dir, "a.json")
	path2 := filepath.Join(dir, "b.json")

	require.NoError(t, (adapter{}).Write(path1, d))
	require.NoError(t, (adapter{}).Write(path2, d))

	b1, err := os.ReadFile(path1)
	require.NoError(t, err)
	b2, err := os.ReadFile(path2)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}
