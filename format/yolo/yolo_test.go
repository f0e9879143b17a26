package yolo

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorable/panlabel"
)

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.White)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestReadRecoversDimensionsFromImageHeader(t *testing.T) {
	root := t.TempDir()
	writeTestPNG(t, filepath.Join(root, "images", "a.png"), 640, 480)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "labels"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "labels", "a.txt"),
		[]byte("0 0.195312 0.260417 0.078125 0.104167\n"), 0o644))

	d, err := (adapter{}).Read(root)
	require.NoError(t, err)
	require.Len(t, d.Images, 1)
	img := d.Images[1]
	assert.Equal(t, uint32(640), img.Width)
	assert.Equal(t, uint32(480), img.Height)
}

func TestReadDerivesPixelBBoxFromYOLOCenterFormat(t *testing.T) {
	// 0.195312 0.260417 0.078125 0.104167 on a 640x480 image is the documented example of a
	// box centered near (125, 125) with width/height 50x50.
	root := t.TempDir()
	writeTestPNG(t, filepath.Join(root, "images", "a.png"), 640, 480)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "labels"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "labels", "a.txt"),
		[]byte("0 0.195312 0.260417 0.078125 0.104167\n"), 0o644))

	d, err := (adapter{}).Read(root)
	require.NoError(t, err)
	ann := d.Annotations[1]
	assert.InDelta(t, 100.0, ann.BBox.Min.X, 0.5)
	assert.InDelta(t, 100.0, ann.BBox.Min.Y, 0.5)
	assert.InDelta(t, 150.0, ann.BBox.Max.X, 0.5)
	assert.InDelta(t, 150.0, ann.BBox.Max.Y, 0.5)
}

func TestReadRejectsSegmentationLines(t *testing.T) {
	root := t.TempDir()
	writeTestPNG(t, filepath.Join(root, "images", "a.png"), 100, 100)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "labels"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "labels", "a.txt"),
		[]byte("0 0.1 0.1 0.2 0.2 0.3 0.3\n"), 0o644))

	_, err := (adapter{}).Read(root)
	var unsupported *panlabel.UnsupportedFeature
	assert.ErrorAs(t, err, &unsupported)
}

func TestReadUsesClassesTxtWhenNoDataYAML(t *testing.T) {
	root := t.TempDir()
	writeTestPNG(t, filepath.Join(root, "images", "a.png"), 100, 100)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "labels"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "labels", "a.txt"), []byte("0 0.5 0.5 0.2 0.2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "classes.txt"), []byte("cat\ndog\n"), 0o644))

	d, err := (adapter{}).Read(root)
	require.NoError(t, err)
	assert.Equal(t, "cat", d.Categories[0].Name)
}

func TestWriteNeverCopiesImageBinaries(t *testing.T) {
	d := panlabel.NewDataset()
	d.AddImage(panlabel.Image{ID: 1, FileName: "a.jpg", Width: 100, Height: 100})
	d.AddCategory(panlabel.Category{ID: 0, Name: "cat"})
	bbox, _ := panlabel.NewPixelBBox(10, 10, 50, 50)
	d.AddAnnotation(panlabel.Annotation{ID: 1, ImageID: 1, CategoryID: 0, BBox: bbox})

	dir := t.TempDir()
	out := filepath.Join(dir, "export")
	require.NoError(t, (adapter{}).Write(out, d))

	entries, err := os.ReadDir(filepath.Join(out, "images"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	labelData, err := os.ReadFile(filepath.Join(out, "labels", "a.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(labelData), "0 ")
}

func TestWriteEmitsEmptyLabelFileForUnannotatedImage(t *testing.T) {
	d := panlabel.NewDataset()
	d.AddImage(panlabel.Image{ID: 1, FileName: "empty.jpg", Width: 100, Height: 100})

	dir := t.TempDir()
	out := filepath.Join(dir, "export")
	require.NoError(t, (adapter{}).Write(out, d))

	data, err := os.ReadFile(filepath.Join(out, "labels", "empty.txt"))
	require.NoError(t, err)
	assert.Empty(t, string(data))
}
