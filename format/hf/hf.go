// Package hf implements the HuggingFace ImageFolder adapter (spec §4.3.8): a directory of
// images plus a metadata.jsonl (preferred) or metadata.parquet side table carrying bounding
// boxes grouped under an "objects" or "faces" column.
package hf

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/sensorable/panlabel"
	"github.com/sensorable/panlabel/internal/fsutil"
	"github.com/sensorable/panlabel/internal/imageprobe"
)

// BBoxMode selects how a row's 4-element bbox array is interpreted.
type BBoxMode int

const (
	BBoxXYWH BBoxMode = iota // x, y, width, height (default)
	BBoxXYXY                // x1, y1, x2, y2
)

// Adapter is the HF ImageFolder reader/writer. The zero value (BBoxMode xywh, no class map)
// is registered by default; construct one directly for a different BBoxMode or a
// user-supplied class-ID-to-name map (§4.3.8 "user-supplied map"). The CLI has no flag for
// either.
type Adapter struct {
	BBoxMode BBoxMode
	ClassMap map[int]string
}

func init() {
	a := Adapter{}
	panlabel.RegisterReader(panlabel.FormatHF, a)
	panlabel.RegisterWriter(panlabel.FormatHF, a)
}

// containerOrder is the auto-detection precedence for the per-row annotation container (§4.3.8).
var containerOrder = []string{"objects", "faces"}

type jsonRow struct {
	FileName string                     `json:"file_name"`
	Objects  map[string]json.RawMessage `json:"objects"`
	Faces    map[string]json.RawMessage `json:"faces"`
}

type parquetRow struct {
	FileName          string    `parquet:"file_name"`
	ObjectsBBoxFlat   []float64 `parquet:"objects_bbox,list,optional"`
	ObjectsCategory   []string  `parquet:"objects_category,list,optional"`
	ObjectsCategoryID []int32   `parquet:"objects_category_id,list,optional"`
	FacesBBoxFlat     []float64 `parquet:"faces_bbox,list,optional"`
	FacesCategory     []string  `parquet:"faces_category,list,optional"`
	FacesCategoryID   []int32   `parquet:"faces_category_id,list,optional"`
}

// parsedBox is a single annotation already resolved to pixel coordinates and a category name,
// independent of the original bbox convention or category encoding.
type parsedBox struct {
	bbox         [4]float64
	categoryName string
}

// classLabelNames holds the locally-available stand-in for HF's remote ClassLabel feature
// names (§4.3.8 precedence: "remote ClassLabel names" first). Remote dataset metadata
// acquisition is out of scope (spec.md Open Questions (c)), so this adapter reads the same
// information from an optional sidecar file instead of fetching it from the Hub.
type classLabelNames map[string][]string // container name ("objects"/"faces") -> names by ID

func loadClassLabelNames(dir string) (classLabelNames, error) {
	data, err := os.ReadFile(filepath.Join(dir, "classlabel_names.json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &panlabel.IoError{Path: dir, Err: err}
	}
	var names classLabelNames
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, &panlabel.ParseError{Path: filepath.Join(dir, "classlabel_names.json"), Err: err}
	}
	return names, nil
}

// resolveCategoryName implements §4.3.8's integer resolution precedence: remote ClassLabel
// names (here, the local sidecar standing in for them) beat a user-supplied map, which beats
// a stringified integer.
func (a Adapter) resolveCategoryName(container string, id int, names classLabelNames) string {
	if list, ok := names[container]; ok && id >= 0 && id < len(list) {
		return list[id]
	}
	if name, ok := a.ClassMap[id]; ok {
		return name
	}
	return strconv.Itoa(id)
}

func bboxToPixel(mode BBoxMode, v [4]float64) (panlabel.PixelBBox, error) {
	switch mode {
	case BBoxXYXY:
		return panlabel.NewPixelBBox(v[0], v[1], v[2], v[3])
	default:
		return panlabel.NewPixelBBox(v[0], v[1], v[0]+v[2], v[1]+v[3])
	}
}

// Read parses metadata.jsonl if present, else metadata.parquet, resolving each row's bounding
// boxes and category names and probing image dimensions from the referenced image file.
func (a Adapter) Read(path string) (*panlabel.Dataset, error) {
	jsonlPath := filepath.Join(path, "metadata.jsonl")
	parquetPath := filepath.Join(path, "metadata.parquet")

	names, err := loadClassLabelNames(path)
	if err != nil {
		return nil, err
	}

	var rows map[string][]parsedBox // file_name -> boxes, insertion order tracked separately
	var fileOrder []string

	addRow := func(fileName string, boxes []parsedBox) error {
		if _, exists := rows[fileName]; exists {
			return &panlabel.SchemaError{Path: path, Field: "file_name",
				Message: fmt.Sprintf("duplicate file_name %q", fileName)}
		}
		rows[fileName] = boxes
		fileOrder = append(fileOrder, fileName)
		return nil
	}
	rows = make(map[string][]parsedBox)

	if _, err := os.Stat(jsonlPath); err == nil {
		if err := a.readJSONL(jsonlPath, names, addRow); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat(parquetPath); err == nil {
		if err := a.readParquet(parquetPath, names, addRow); err != nil {
			return nil, err
		}
	} else {
		return nil, &panlabel.IoError{Path: path, Err: fmt.Errorf("neither metadata.jsonl nor metadata.parquet found")}
	}

	sort.Strings(fileOrder)

	d := panlabel.NewDataset()
	categoryIDs := make(map[string]uint64)
	nextAnnotationID := uint64(1)

	for i, fileName := range fileOrder {
		imageID := panlabel.ImageID(i + 1)
		width, height, err := imageprobe.Probe(filepath.Join(path, fileName))
		if err != nil {
			return nil, &panlabel.IoError{Path: filepath.Join(path, fileName), Err: err}
		}
		d.AddImage(panlabel.Image{ID: imageID, FileName: fsutil.NormalizeSlashes(fileName), Width: width, Height: height})

		for _, box := range rows[fileName] {
			catID, ok := categoryIDs[box.categoryName]
			if !ok {
				catID = uint64(len(categoryIDs) + 1)
				categoryIDs[box.categoryName] = catID
				d.AddCategory(panlabel.Category{ID: panlabel.CategoryID(catID), Name: box.categoryName})
			}
			bbox, err := bboxToPixel(a.BBoxMode, box.bbox)
			if err != nil {
				return nil, &panlabel.SchemaError{Path: path, Field: "bbox", Message: err.Error()}
			}
			d.AddAnnotation(panlabel.Annotation{
				ID: panlabel.AnnotationID(nextAnnotationID), ImageID: imageID,
				CategoryID: panlabel.CategoryID(catID), BBox: bbox,
			})
			nextAnnotationID++
		}
	}

	return d, nil
}

func (a Adapter) readJSONL(path string, names classLabelNames, addRow func(string, []parsedBox) error) error {
	f, err := os.Open(path)
	if err != nil {
		return &panlabel.IoError{Path: path, Err: err}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row jsonRow
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return &panlabel.ParseError{Path: path, Err: err}
		}

		container, fields := "", map[string]json.RawMessage(nil)
		for _, c := range containerOrder {
			switch c {
			case "objects":
				if row.Objects != nil {
					container, fields = c, row.Objects
				}
			case "faces":
				if row.Faces != nil {
					container, fields = c, row.Faces
				}
			}
			if fields != nil {
				break
			}
		}

		var boxes []parsedBox
		if fields != nil {
			parsed, err := a.parseJSONContainer(path, container, fields, names)
			if err != nil {
				return err
			}
			boxes = parsed
		}
		if err := addRow(row.FileName, boxes); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return &panlabel.IoError{Path: path, Err: err}
	}
	return nil
}

func (a Adapter) parseJSONContainer(path, container string, fields map[string]json.RawMessage,
	names classLabelNames) ([]parsedBox, error) {

	var bboxes [][4]float64
	if raw, ok := fields["bbox"]; ok {
		if err := json.Unmarshal(raw, &bboxes); err != nil {
			return nil, &panlabel.ParseError{Path: path, Err: err}
		}
	}

	categoryField := fields["category"]
	if categoryField == nil {
		categoryField = fields["categories"]
	}
	var rawCategories []json.RawMessage
	if categoryField != nil {
		if err := json.Unmarshal(categoryField, &rawCategories); err != nil {
			return nil, &panlabel.ParseError{Path: path, Err: err}
		}
	}
	if len(rawCategories) != len(bboxes) {
		return nil, &panlabel.SchemaError{Path: path, Field: container,
			Message: fmt.Sprintf("bbox count (%d) does not match category count (%d)", len(bboxes), len(rawCategories))}
	}

	out := make([]parsedBox, len(bboxes))
	for i, raw := range rawCategories {
		name, err := a.resolveJSONCategory(container, raw, names)
		if err != nil {
			return nil, &panlabel.ParseError{Path: path, Err: err}
		}
		out[i] = parsedBox{bbox: bboxes[i], categoryName: name}
	}
	return out, nil
}

// resolveJSONCategory handles a single category value that may already be a string name (no
// resolution needed) or an integer ID (resolved through the same precedence as resolveCategoryName).
func (a Adapter) resolveJSONCategory(container string, raw json.RawMessage, names classLabelNames) (string, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil
	}
	var asInt int
	if err := json.Unmarshal(raw, &asInt); err != nil {
		return "", err
	}
	return a.resolveCategoryName(container, asInt, names), nil
}

func (a Adapter) readParquet(path string, names classLabelNames, addRow func(string, []parsedBox) error) error {
	rows, err := parquet.ReadFile[parquetRow](path)
	if err != nil {
		return &panlabel.ParseError{Path: path, Err: err}
	}

	for _, r := range rows {
		container, bboxFlat, catNames, catIDs := "", []float64(nil), []string(nil), []int32(nil)
		switch {
		case len(r.ObjectsBBoxFlat) > 0:
			container, bboxFlat, catNames, catIDs = "objects", r.ObjectsBBoxFlat, r.ObjectsCategory, r.ObjectsCategoryID
		case len(r.FacesBBoxFlat) > 0:
			container, bboxFlat, catNames, catIDs = "faces", r.FacesBBoxFlat, r.FacesCategory, r.FacesCategoryID
		}

		var boxes []parsedBox
		if len(bboxFlat)%4 != 0 {
			return &panlabel.SchemaError{Path: path, Field: container + "_bbox",
				Message: fmt.Sprintf("flattened bbox list length %d is not a multiple of 4", len(bboxFlat))}
		}
		n := len(bboxFlat) / 4
		for i := 0; i < n; i++ {
			bbox := [4]float64{bboxFlat[4*i], bboxFlat[4*i+1], bboxFlat[4*i+2], bboxFlat[4*i+3]}
			var name string
			switch {
			case i < len(catNames):
				name = catNames[i]
			case i < len(catIDs):
				name = a.resolveCategoryName(container, int(catIDs[i]), names)
			default:
				return &panlabel.SchemaError{Path: path, Field: container,
					Message: "bbox count does not match category count"}
			}
			boxes = append(boxes, parsedBox{bbox: bbox, categoryName: name})
		}
		if err := addRow(r.FileName, boxes); err != nil {
			return err
		}
	}
	return nil
}

// Write emits metadata.jsonl, rows sorted by file_name, each row's annotations sorted by
// ascending annotation ID, boxes always written in xywh form regardless of Adapter.BBoxMode.
func (a Adapter) Write(path string, d *panlabel.Dataset) error {
	images := d.ImagesInOrder()
	sort.Slice(images, func(i, j int) bool { return images[i].FileName < images[j].FileName })

	var b strings.Builder
	for _, img := range images {
		anns := d.AnnotationsForImage(img.ID)
		sort.Slice(anns, func(i, j int) bool { return anns[i].ID < anns[j].ID })

		bboxes := make([][4]float64, len(anns))
		categories := make([]string, len(anns))
		for i, ann := range anns {
			cat := d.Categories[ann.CategoryID]
			bboxes[i] = [4]float64{ann.BBox.Min.X, ann.BBox.Min.Y, ann.BBox.Width(), ann.BBox.Height()}
			categories[i] = cat.Name
		}

		row := struct {
			FileName string `json:"file_name"`
			Objects  struct {
				BBox     [][4]float64 `json:"bbox"`
				Category []string     `json:"category"`
			} `json:"objects"`
		}{FileName: img.FileName}
		row.Objects.BBox = bboxes
		row.Objects.Category = categories

		enc, err := json.Marshal(row)
		if err != nil {
			return &panlabel.WriteError{Path: path, Err: err}
		}
		b.Write(enc)
		b.WriteByte('\n')
	}

	metaPath := filepath.Join(path, "metadata.jsonl")
	if err := fsutil.AtomicWriteFile(metaPath, []byte(b.String()), 0o644); err != nil {
		return &panlabel.WriteError{Path: path, Err: err}
	}
	return nil
}
