// Package labelstudio implements the Label Studio JSON adapter (spec §4.3.5): an array of
// tasks, each carrying percentage-space rectangle results split across ground-truth annotations
// and scored predictions.
package labelstudio

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"sort"
	"strconv"

	"github.com/sensorable/panlabel"
	"github.com/sensorable/panlabel/internal/fsutil"
)

func init() {
	a := adapter{}
	panlabel.RegisterReader(panlabel.FormatLabelStudio, a)
	panlabel.RegisterWriter(panlabel.FormatLabelStudio, a)
}

type adapter struct{}

type lsValue struct {
	X               float64  `json:"x"`
	Y               float64  `json:"y"`
	Width           float64  `json:"width"`
	Height          float64  `json:"height"`
	Rotation        float64  `json:"rotation,omitempty"`
	RectangleLabels []string `json:"rectanglelabels"`
}

type lsResultItem struct {
	FromName       string  `json:"from_name"`
	ToName         string  `json:"to_name"`
	Type           string  `json:"type"`
	OriginalWidth  float64 `json:"original_width"`
	OriginalHeight float64 `json:"original_height"`
	Value          lsValue `json:"value"`
}

type lsResultSet struct {
	Score  *float64       `json:"score,omitempty"`
	Result []lsResultItem `json:"result"`
}

type lsTask struct {
	Data struct {
		Image string `json:"image"`
	} `json:"data"`
	Annotations []lsResultSet `json:"annotations,omitempty"`
	Completions []lsResultSet `json:"completions,omitempty"`
	Predictions []lsResultSet `json:"predictions,omitempty"`
}

// Read parses a Label Studio task array. Only "rectanglelabels" results are supported; any
// other result type is a SchemaError. Each task may carry at most one ground-truth result set
// (from "annotations", or the legacy "completions" — the two are mutually exclusive) and at
// most one predictions result set.
func (adapter) Read(filePath string) (*panlabel.Dataset, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, &panlabel.IoError{Path: filePath, Err: err}
	}

	var tasks []lsTask
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, &panlabel.ParseError{Path: filePath, Err: err}
	}

	d := panlabel.NewDataset()
	if len(tasks) == 0 {
		return d, nil
	}

	type resolvedTask struct {
		fileName         string
		width, height    uint32
		fromName, toName string
		groundTruth      []lsResultItem
		predictions      []struct {
			score float64
			item  lsResultItem
		}
	}

	byFileName := make(map[string]*resolvedTask)
	for _, t := range tasks {
		if len(t.Annotations) > 0 && len(t.Completions) > 0 {
			return nil, &panlabel.SchemaError{Path: filePath, Field: "annotations",
				Message: "task has both annotations and completions; they are mutually exclusive"}
		}
		groundTruthSets := t.Annotations
		if len(groundTruthSets) == 0 {
			groundTruthSets = t.Completions
		}
		if len(groundTruthSets) > 1 {
			return nil, &panlabel.SchemaError{Path: filePath, Field: "annotations",
				Message: "task has more than one ground-truth result set"}
		}
		if len(t.Predictions) > 1 {
			return nil, &panlabel.SchemaError{Path: filePath, Field: "predictions",
				Message: "task has more than one predictions result set"}
		}

		fileName := basenameOf(t.Data.Image)
		rt, exists := byFileName[fileName]
		if !exists {
			rt = &resolvedTask{fileName: fileName}
			byFileName[fileName] = rt
		} else {
			return nil, &panlabel.SchemaError{Path: filePath, Field: "data.image",
				Message: fmt.Sprintf("duplicate image basename %q", fileName)}
		}

		consume := func(item lsResultItem) error {
			if item.Type != "rectanglelabels" {
				return &panlabel.SchemaError{Path: filePath, Field: "type",
					Message: fmt.Sprintf("unsupported result type %q", item.Type)}
			}
			if len(item.Value.RectangleLabels) != 1 {
				return &panlabel.SchemaError{Path: filePath, Field: "value.rectanglelabels",
					Message: "each result must carry exactly one label"}
			}
			if rt.fromName == "" && rt.toName == "" {
				rt.fromName, rt.toName = item.FromName, item.ToName
			} else if rt.fromName != item.FromName || rt.toName != item.ToName {
				return &panlabel.SchemaError{Path: filePath, Field: "from_name",
					Message: "from_name/to_name must be consistent within a task"}
			}
			rt.width, rt.height = uint32(item.OriginalWidth), uint32(item.OriginalHeight)
			return nil
		}

		if len(groundTruthSets) == 1 {
			for _, item := range groundTruthSets[0].Result {
				if err := consume(item); err != nil {
					return nil, err
				}
				rt.groundTruth = append(rt.groundTruth, item)
			}
		}
		if len(t.Predictions) == 1 {
			score := 0.0
			if t.Predictions[0].Score != nil {
				score = *t.Predictions[0].Score
			}
			for _, item := range t.Predictions[0].Result {
				if err := consume(item); err != nil {
					return nil, err
				}
				rt.predictions = append(rt.predictions, struct {
					score float64
					item  lsResultItem
				}{score: score, item: item})
			}
		}
	}

	fileNames := make([]string, 0, len(byFileName))
	for name := range byFileName {
		fileNames = append(fileNames, name)
	}
	sort.Strings(fileNames)

	categoryIDs := make(map[string]uint64)
	var allLabels []string
	for _, rt := range byFileName {
		for _, item := range rt.groundTruth {
			allLabels = append(allLabels, item.Value.RectangleLabels[0])
		}
		for _, p := range rt.predictions {
			allLabels = append(allLabels, p.item.Value.RectangleLabels[0])
		}
	}
	sort.Strings(allLabels)
	for _, label := range allLabels {
		if _, ok := categoryIDs[label]; !ok {
			id := uint64(len(categoryIDs) + 1)
			categoryIDs[label] = id
			d.AddCategory(panlabel.Category{ID: panlabel.CategoryID(id), Name: label})
		}
	}

	nextAnnotationID := uint64(1)
	for i, name := range fileNames {
		rt := byFileName[name]
		imageID := panlabel.ImageID(i + 1)
		imgAttrs := map[string]string{}
		if rt.fromName != "" {
			imgAttrs["ls_from_name"] = rt.fromName
		}
		if rt.toName != "" {
			imgAttrs["ls_to_name"] = rt.toName
		}
		d.AddImage(panlabel.Image{ID: imageID, FileName: name, Width: rt.width, Height: rt.height, Attributes: imgAttrs})

		size := panlabel.ImageSize{Width: rt.width, Height: rt.height}
		for _, item := range rt.groundTruth {
			ann, err := toAnnotation(filePath, panlabel.AnnotationID(nextAnnotationID), imageID,
				panlabel.CategoryID(categoryIDs[item.Value.RectangleLabels[0]]), item, size, nil)
			if err != nil {
				return nil, err
			}
			d.AddAnnotation(ann)
			nextAnnotationID++
		}
		for _, p := range rt.predictions {
			score := p.score
			ann, err := toAnnotation(filePath, panlabel.AnnotationID(nextAnnotationID), imageID,
				panlabel.CategoryID(categoryIDs[p.item.Value.RectangleLabels[0]]), p.item, size, &score)
			if err != nil {
				return nil, err
			}
			d.AddAnnotation(ann)
			nextAnnotationID++
		}
	}

	return d, nil
}

func toAnnotation(filePath string, id panlabel.AnnotationID, imageID panlabel.ImageID,
	catID panlabel.CategoryID, item lsResultItem, size panlabel.ImageSize, confidence *float64) (panlabel.Annotation, error) {

	x := item.Value.X / 100 * float64(size.Width)
	y := item.Value.Y / 100 * float64(size.Height)
	w := item.Value.Width / 100 * float64(size.Width)
	h := item.Value.Height / 100 * float64(size.Height)

	bbox, err := panlabel.NewPixelBBox(x, y, x+w, y+h)
	if err != nil {
		return panlabel.Annotation{}, &panlabel.SchemaError{Path: filePath, Field: "value", Message: err.Error()}
	}

	attrs := map[string]string{}
	if item.Value.Rotation != 0 {
		attrs["ls_rotation_deg"] = strconv.FormatFloat(item.Value.Rotation, 'f', -1, 64)
	}

	return panlabel.Annotation{
		ID: id, ImageID: imageID, CategoryID: catID, BBox: bbox, Confidence: confidence, Attributes: attrs,
	}, nil
}

// basenameOf extracts data.image's file basename, normalizing backslashes and stripping any
// query string or fragment (§4.3.5).
func basenameOf(image string) string {
	p := fsutil.NormalizeSlashes(image)
	if u, err := url.Parse(p); err == nil && u.Path != "" {
		p = u.Path
	}
	return path.Base(p)
}

// Write emits Label Studio tasks ordered by file_name lexicographically. Ground-truth
// annotations (nil confidence) go into a single "annotations" result set per task; scored
// annotations go into "predictions", one prediction entry per distinct score value so no
// confidence information is approximated away.
func (adapter) Write(filePath string, d *panlabel.Dataset) error {
	images := d.ImagesInOrder()
	sort.Slice(images, func(i, j int) bool { return images[i].FileName < images[j].FileName })

	tasks := make([]lsTask, 0, len(images))
	for _, img := range images {
		t := lsTask{}
		t.Data.Image = img.FileName

		fromName, toName := img.Attributes["ls_from_name"], img.Attributes["ls_to_name"]
		if fromName == "" {
			fromName = "label"
		}
		if toName == "" {
			toName = "image"
		}

		var groundTruth []lsResultItem
		predictionsByScore := make(map[float64][]lsResultItem)
		var scoreOrder []float64
		seenScore := make(map[float64]bool)

		for _, ann := range d.AnnotationsForImage(img.ID) {
			cat := d.Categories[ann.CategoryID]
			item := lsResultItem{
				FromName: fromName, ToName: toName, Type: "rectanglelabels",
				OriginalWidth: float64(img.Width), OriginalHeight: float64(img.Height),
				Value: lsValue{
					X:               ann.BBox.Min.X / float64(img.Width) * 100,
					Y:               ann.BBox.Min.Y / float64(img.Height) * 100,
					Width:           ann.BBox.Width() / float64(img.Width) * 100,
					Height:          ann.BBox.Height() / float64(img.Height) * 100,
					RectangleLabels: []string{cat.Name},
				},
			}
			if deg, ok := ann.Attributes["ls_rotation_deg"]; ok {
				if v, err := strconv.ParseFloat(deg, 64); err == nil {
					item.Value.Rotation = v
				}
			}

			if ann.Confidence == nil {
				groundTruth = append(groundTruth, item)
				continue
			}
			s := *ann.Confidence
			if !seenScore[s] {
				seenScore[s] = true
				scoreOrder = append(scoreOrder, s)
			}
			predictionsByScore[s] = append(predictionsByScore[s], item)
		}

		if len(groundTruth) > 0 {
			t.Annotations = []lsResultSet{{Result: groundTruth}}
		}
		sort.Float64s(scoreOrder)
		for _, s := range scoreOrder {
			score := s
			t.Predictions = append(t.Predictions, lsResultSet{Score: &score, Result: predictionsByScore[s]})
		}

		tasks = append(tasks, t)
	}

	enc, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return &panlabel.WriteError{Path: filePath, Err: err}
	}
	if err := fsutil.AtomicWriteFile(filePath, enc, 0o644); err != nil {
		return &panlabel.WriteError{Path: filePath, Err: err}
	}
	return nil
}
