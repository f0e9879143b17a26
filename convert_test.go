package panlabel_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorable/panlabel"
	_ "github.com/sensorable/panlabel/format/coco"
	_ "github.com/sensorable/panlabel/format/irjson"
	_ "github.com/sensorable/panlabel/format/tfod"
)

const cocoFixture = `{
  "images": [{"id": 1, "file_name": "a.jpg", "width": 640, "height": 480}],
  "categories": [{"id": 1, "name": "person"}],
  "annotations": [{"id": 1, "image_id": 1, "category_id": 1, "bbox": [50, 125, 50, 50], "area": 2500, "iscrowd": 0}]
}`

func TestConvertCOCOToIRJSONLosslessRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(in, []byte(cocoFixture), 0o644))
	out := filepath.Join(dir, "out.json")

	result, err := panlabel.Convert(panlabel.ConvertOptions{
		From: panlabel.FormatCOCO, To: panlabel.FormatIRJSON,
		InputPath: in, OutputPath: out,
	})
	require.NoError(t, err)
	assert.False(t, result.Report.IsLossy())
	assert.FileExists(t, out)
}

func TestConvertBlocksLossyWithoutAllowLossy(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(in, []byte(cocoFixture), 0o644))
	out := filepath.Join(dir, "out.csv")

	result, err := panlabel.Convert(panlabel.ConvertOptions{
		From: panlabel.FormatCOCO, To: panlabel.FormatTFOD,
		InputPath: in, OutputPath: out,
	})
	var blocked *panlabel.LossyConversionBlocked
	require.ErrorAs(t, err, &blocked)
	assert.True(t, result.Report.IsLossy())
	assert.NoFileExists(t, out)
}

func TestConvertWithAllowLossyProceeds(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(in, []byte(cocoFixture), 0o644))
	out := filepath.Join(dir, "out.csv")

	_, err := panlabel.Convert(panlabel.ConvertOptions{
		From: panlabel.FormatCOCO, To: panlabel.FormatTFOD,
		InputPath: in, OutputPath: out, AllowLossy: true,
	})
	require.NoError(t, err)
	assert.FileExists(t, out)
}

func TestConvertFatalOnValidationError(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	badFixture := `{"images":[{"id":1,"file_name":"a.jpg","width":0,"height":0}],"categories":[],"annotations":[]}`
	require.NoError(t, os.WriteFile(in, []byte(badFixture), 0o644))
	out := filepath.Join(dir, "out.json")

	_, err := panlabel.Convert(panlabel.ConvertOptions{
		From: panlabel.FormatCOCO, To: panlabel.FormatIRJSON,
		InputPath: in, OutputPath: out,
	})
	var verr *panlabel.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestConversionReportMarshalsToStableJSONSchema(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(in, []byte(cocoFixture), 0o644))
	out := filepath.Join(dir, "out.json")

	result, err := panlabel.Convert(panlabel.ConvertOptions{
		From: panlabel.FormatCOCO, To: panlabel.FormatIRJSON,
		InputPath: in, OutputPath: out,
	})
	require.NoError(t, err)

	enc, err := json.Marshal(result.Report)
	require.NoError(t, err)

	var shape map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(enc, &shape))
	for _, key := range []string{"from", "to", "input", "output", "issues"} {
		assert.Contains(t, shape, key)
	}

	var from, to string
	require.NoError(t, json.Unmarshal(shape["from"], &from))
	require.NoError(t, json.Unmarshal(shape["to"], &to))
	assert.Equal(t, "coco", from)
	assert.Equal(t, "ir-json", to)

	var input map[string]int
	require.NoError(t, json.Unmarshal(shape["input"], &input))
	assert.Equal(t, 1, input["images"])
	assert.Equal(t, 1, input["categories"])
	assert.Equal(t, 1, input["annotations"])
}

func TestConvertAutoDetectsSourceFormat(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(in, []byte(cocoFixture), 0o644))
	out := filepath.Join(dir, "out.json")

	result, err := panlabel.Convert(panlabel.ConvertOptions{
		From: panlabel.FormatUnknown, To: panlabel.FormatIRJSON,
		InputPath: in, OutputPath: out,
	})
	require.NoError(t, err)
	assert.Equal(t, panlabel.FormatCOCO, result.Detected)
}
