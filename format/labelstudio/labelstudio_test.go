package labelstudio

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorable/panlabel"
)

const fixture = `[
  {
    "data": {"image": "/data/upload/1/a.jpg"},
    "annotations": [{"result": [{
      "from_name": "label", "to_name": "image", "type": "rectanglelabels",
      "original_width": 200, "original_height": 100,
      "value": {"x": 10, "y": 20, "width": 30, "height": 40, "rotation": 15, "rectanglelabels": ["cat"]}
    }]}],
    "predictions": [{"score": 0.8, "result": [{
      "from_name": "label", "to_name": "image", "type": "rectanglelabels",
      "original_width": 200, "original_height": 100,
      "value": {"x": 0, "y": 0, "width": 10, "height": 10, "rectanglelabels": ["dog"]}
    }]}]
  }
]`

func TestReadConvertsPercentageCoordinatesToPixels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))

	d, err := (adapter{}).Read(path)
	require.NoError(t, err)

	require.Len(t, d.Images, 1)
	img := d.Images[1]
	assert.Equal(t, "a.jpg", img.FileName)

	var groundTruth *panlabel.Annotation
	for i := range d.Annotations {
		a := d.Annotations[i]
		if a.Confidence == nil {
			groundTruth = &a
		}
	}
	require.NotNil(t, groundTruth)
	assert.InDelta(t, 20.0, groundTruth.BBox.Min.X, 1e-6)
	assert.InDelta(t, 20.0, groundTruth.BBox.Min.Y, 1e-6)
	assert.Equal(t, "15", groundTruth.Attributes["ls_rotation_deg"])
}

func TestReadSeparatesGroundTruthFromPredictions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))

	d, err := (adapter{}).Read(path)
	require.NoError(t, err)

	var scored, unscored int
	for _, a := range d.Annotations {
		if a.Confidence != nil {
			scored++
			assert.InDelta(t, 0.8, *a.Confidence, 1e-9)
		} else {
			unscored++
		}
	}
	assert.Equal(t, 1, scored)
	assert.Equal(t, 1, unscored)
}

func TestReadRejectsBothAnnotationsAndCompletions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.json")
	data := `[{"data": {"image": "a.jpg"}, "annotations": [{"result": []}], "completions": [{"result": []}]}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := (adapter{}).Read(path)
	var schemaErr *panlabel.SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestReadRejectsNonRectangleLabelType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.json")
	data := `[{"data": {"image": "a.jpg"}, "annotations": [{"result": [{
		"from_name": "label", "to_name": "image", "type": "polygonlabels",
		"value": {"rectanglelabels": ["cat"]}
	}]}]}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := (adapter{}).Read(path)
	var schemaErr *panlabel.SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestReadRejectsMultiplePredictionSets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.json")
	data := `[{"data": {"image": "a.jpg"}, "predictions": [{"result": []}, {"result": []}]}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := (adapter{}).Read(path)
	var schemaErr *panlabel.SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestWriteOrdersTasksByFileName(t *testing.T) {
	d := panlabel.NewDataset()
	d.AddImage(panlabel.Image{ID: 1, FileName: "b.jpg", Width: 100, Height: 100})
	d.AddImage(panlabel.Image{ID: 2, FileName: "a.jpg", Width: 100, Height: 100})

	dir := t.TempDir()
	out := filepath.Join(dir, "out.json")
	require.NoError(t, (adapter{}).Write(out, d))

	reread, err := (adapter{}).Read(out)
	require.NoError(t, err)
	assert.Equal(t, "a.jpg", reread.Images[1].FileName)
	assert.Equal(t, "b.jpg", reread.Images[2].FileName)
}

func TestWriteSplitsPredictionsByDistinctScore(t *testing.T) {
	d := panlabel.NewDataset()
	d.AddImage(panlabel.Image{ID: 1, FileName: "a.jpg", Width: 100, Height: 100})
	d.AddCategory(panlabel.Category{ID: 1, Name: "cat"})
	bbox, _ := panlabel.NewPixelBBox(0, 0, 10, 10)
	s1, s2 := 0.5, 0.9
	d.AddAnnotation(panlabel.Annotation{ID: 1, ImageID: 1, CategoryID: 1, BBox: bbox, Confidence: &s1})
	d.AddAnnotation(panlabel.Annotation{ID: 2, ImageID: 1, CategoryID: 1, BBox: bbox, Confidence: &s2})

	dir := t.TempDir()
	out := filepath.Join(dir, "out.json")
	require.NoError(t, (adapter{}).Write(out, d))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var tasks []lsTask
	require.NoError(t, json.Unmarshal(data, &tasks))
	assert.Len(t, tasks[0].Predictions, 2)
}
