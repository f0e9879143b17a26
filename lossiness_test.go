package panlabel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeDropsConfidenceWhenDestinationLacksIt(t *testing.T) {
	d := NewDataset()
	d.AddImage(Image{ID: 1, FileName: "a.jpg", Width: 10, Height: 10})
	d.AddCategory(Category{ID: 1, Name: "cat"})
	bbox, _ := NewPixelBBox(0, 0, 5, 5)
	score := 0.9
	d.AddAnnotation(Annotation{ID: 1, ImageID: 1, CategoryID: 1, BBox: bbox, Confidence: &score})

	report := Analyze(FormatCOCO, FormatYOLO, d)
	assert.True(t, report.IsLossy())
	found := false
	for _, i := range report.Issues {
		if i.Code == CodeDropAnnotationConfidence {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAnalyzeIRJSONToIRJSONIsLossless(t *testing.T) {
	d := NewDataset()
	d.AddImage(Image{ID: 1, FileName: "a.jpg", Width: 10, Height: 10})
	d.AddCategory(Category{ID: 1, Name: "cat"})
	bbox, _ := NewPixelBBox(0, 0, 5, 5)
	d.AddAnnotation(Annotation{ID: 1, ImageID: 1, CategoryID: 1, BBox: bbox})

	report := Analyze(FormatIRJSON, FormatIRJSON, d)
	assert.False(t, report.IsLossy())
}

func TestAnalyzeVOCSourceEmitsCoordinatePolicyNote(t *testing.T) {
	d := NewDataset()
	report := Analyze(FormatVOC, FormatIRJSON, d)
	var found bool
	for _, i := range report.Issues {
		if i.Code == CodeVOCReaderCoordinatePolicy {
			found = true
			assert.Equal(t, SeverityInfo, i.Severity)
		}
	}
	assert.True(t, found)
}

func TestAnalyzeHFSourceEmitsBBoxModeNoteUnconditionally(t *testing.T) {
	d := NewDataset()
	report := Analyze(FormatHF, FormatIRJSON, d)
	var found bool
	for _, i := range report.Issues {
		if i.Code == CodeHFBBoxModeInfo {
			found = true
		}
	}
	assert.True(t, found, "CodeHFBBoxModeInfo must be emitted for every HF source regardless of content")
}

func TestAnalyzeCVATInferredCategoriesNote(t *testing.T) {
	d := NewDataset()
	d.AddCategory(Category{ID: 1, Name: "dog", Attributes: map[string]string{"cvat_inferred": "1"}})

	report := Analyze(FormatCVAT, FormatIRJSON, d)
	var found bool
	for _, i := range report.Issues {
		if i.Code == CodeCVATCategoriesInferred {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAnalyzeCOCODatasetInfoNameNoteReadsCapabilityNotHardcodedFormat(t *testing.T) {
	d := NewDataset()
	d.Info = &Info{Name: "my dataset"}

	report := Analyze(FormatIRJSON, FormatCOCO, d)
	var found bool
	for _, i := range report.Issues {
		if i.Code == CodeCOCODropDatasetInfoName {
			found = true
			assert.Equal(t, SeverityWarning, i.Severity)
		}
	}
	assert.True(t, found)

	// A format that keeps no dataset info at all (TFOD: DatasetInfo=false) must not also emit
	// this more specific note; CodeDropDatasetInfo above already covers it.
	report = Analyze(FormatIRJSON, FormatTFOD, d)
	for _, i := range report.Issues {
		assert.NotEqual(t, CodeCOCODropDatasetInfoName, i.Code)
	}
}

func TestAnalyzeDropsImagesWithoutAnnotationsForTFOD(t *testing.T) {
	d := NewDataset()
	d.AddImage(Image{ID: 1, FileName: "empty.jpg", Width: 10, Height: 10})

	report := Analyze(FormatIRJSON, FormatTFOD, d)
	assert.True(t, report.IsLossy())
	assert.Equal(t, 0, report.Output.Images)
}
