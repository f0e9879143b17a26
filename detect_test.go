package panlabel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormatCOCOJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"images":[],"categories":[],"annotations":[{"id":1,"image_id":1,"category_id":1,"bbox":[0,0,1,1]}]}`), 0o644))

	f, err := DetectFormat(path)
	require.NoError(t, err)
	assert.Equal(t, FormatCOCO, f)
}

func TestDetectFormatLabelStudioJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"data":{"image":"a.jpg"}}]`), 0o644))

	f, err := DetectFormat(path)
	require.NoError(t, err)
	assert.Equal(t, FormatLabelStudio, f)
}

func TestDetectFormatTFODCsv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("filename,width,height,class,xmin,ymin,xmax,ymax\n"), 0o644))

	f, err := DetectFormat(path)
	require.NoError(t, err)
	assert.Equal(t, FormatTFOD, f)
}

func TestDetectFormatCVATXML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "annotations.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<?xml version="1.0"?><annotations></annotations>`), 0o644))

	f, err := DetectFormat(path)
	require.NoError(t, err)
	assert.Equal(t, FormatCVAT, f)
}

func TestDetectFormatYOLODirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "labels"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "labels", "a.txt"), []byte("0 0.5 0.5 0.1 0.1\n"), 0o644))

	f, err := DetectFormat(dir)
	require.NoError(t, err)
	assert.Equal(t, FormatYOLO, f)
}

func TestDetectFormatVOCDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Annotations"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "JPEGImages"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Annotations", "a.xml"), []byte("<annotation></annotation>"), 0o644))

	f, err := DetectFormat(dir)
	require.NoError(t, err)
	assert.Equal(t, FormatVOC, f)
}

func TestDetectFormatUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.weird")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := DetectFormat(path)
	var uf *UnknownFormat
	assert.ErrorAs(t, err, &uf)
}

func TestDetectFormatAmbiguousDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Annotations"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "JPEGImages"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Annotations", "a.xml"), []byte("<annotation></annotation>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "annotations.xml"), []byte(`<annotations></annotations>`), 0o644))

	_, err := DetectFormat(dir)
	var ad *AmbiguousDetection
	assert.ErrorAs(t, err, &ad)
}
