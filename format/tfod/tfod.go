// Package tfod implements the TensorFlow Object Detection CSV adapter (spec §4.3.2): a lossy,
// minimal format with no slot for dataset info, licenses, per-image metadata, confidence,
// attributes, or images without annotations.
package tfod

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/sensorable/panlabel"
	"github.com/sensorable/panlabel/internal/fsutil"
)

func init() {
	a := adapter{}
	panlabel.RegisterReader(panlabel.FormatTFOD, a)
	panlabel.RegisterWriter(panlabel.FormatTFOD, a)
}

type adapter struct{}

var header = []string{"filename", "width", "height", "class", "xmin", "ymin", "xmax", "ymax"}

type row struct {
	filename               string
	width, height          float64
	class                  string
	xmin, ymin, xmax, ymax float64
}

// Read parses a TFOD CSV file. Image IDs are assigned by filename lexicographic order starting
// at 1; category IDs by class name lexicographic order starting at 1; annotation IDs by CSV row
// order starting at 1 (§4.3.2).
func (adapter) Read(path string) (*panlabel.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &panlabel.IoError{Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	cols, err := r.Read()
	if err == io.EOF {
		return panlabel.NewDataset(), nil
	}
	if err != nil {
		return nil, &panlabel.ParseError{Path: path, Err: err}
	}
	idx, err := columnIndex(cols)
	if err != nil {
		return nil, &panlabel.SchemaError{Path: path, Message: err.Error()}
	}

	var rows []row
	for lineNo := 2; ; lineNo++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &panlabel.ParseError{Path: path, Line: lineNo, Err: err}
		}
		rw, err := parseRow(rec, idx)
		if err != nil {
			return nil, &panlabel.ParseError{Path: path, Line: lineNo, Err: err}
		}
		rows = append(rows, rw)
	}

	filenames := make(map[string]bool)
	classes := make(map[string]bool)
	for _, rw := range rows {
		filenames[rw.filename] = true
		classes[rw.class] = true
	}

	imageIDs := assignIDs(filenames)
	categoryIDs := assignIDs(classes)

	d := panlabel.NewDataset()
	for _, name := range sortedKeys(filenames) {
		var w, h float64
		for _, rw := range rows {
			if rw.filename == name {
				w, h = rw.width, rw.height
				break
			}
		}
		d.AddImage(panlabel.Image{ID: panlabel.ImageID(imageIDs[name]), FileName: name,
			Width: uint32(w), Height: uint32(h)})
	}
	for _, name := range sortedKeys(classes) {
		d.AddCategory(panlabel.Category{ID: panlabel.CategoryID(categoryIDs[name]), Name: name})
	}

	for i, rw := range rows {
		norm, err := panlabel.NewNormalizedBBox(rw.xmin, rw.ymin, rw.xmax, rw.ymax)
		if err != nil {
			return nil, &panlabel.SchemaError{Path: path, Field: "bbox", Message: err.Error()}
		}
		size := panlabel.ImageSize{Width: uint32(rw.width), Height: uint32(rw.height)}
		bbox := panlabel.FromNormalized(norm, size)
		d.AddAnnotation(panlabel.Annotation{
			ID:         panlabel.AnnotationID(i + 1),
			ImageID:    panlabel.ImageID(imageIDs[rw.filename]),
			CategoryID: panlabel.CategoryID(categoryIDs[rw.class]),
			BBox:       bbox,
		})
	}

	return d, nil
}

func columnIndex(cols []string) (map[string]int, error) {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c] = i
	}
	for _, want := range header {
		if _, ok := idx[want]; !ok {
			return nil, fmt.Errorf("tfod: missing required column %q", want)
		}
	}
	return idx, nil
}

func parseRow(rec []string, idx map[string]int) (row, error) {
	get := func(name string) string { return rec[idx[name]] }
	parseFloat := func(name string) (float64, error) {
		v, err := strconv.ParseFloat(get(name), 64)
		if err != nil {
			return 0, fmt.Errorf("tfod: column %q: %w", name, err)
		}
		return v, nil
	}

	w, err := parseFloat("width")
	if err != nil {
		return row{}, err
	}
	h, err := parseFloat("height")
	if err != nil {
		return row{}, err
	}
	xmin, err := parseFloat("xmin")
	if err != nil {
		return row{}, err
	}
	ymin, err := parseFloat("ymin")
	if err != nil {
		return row{}, err
	}
	xmax, err := parseFloat("xmax")
	if err != nil {
		return row{}, err
	}
	ymax, err := parseFloat("ymax")
	if err != nil {
		return row{}, err
	}

	return row{
		filename: get("filename"), width: w, height: h, class: get("class"),
		xmin: xmin, ymin: ymin, xmax: xmax, ymax: ymax,
	}, nil
}

func assignIDs(names map[string]bool) map[string]uint64 {
	keys := sortedKeys(names)
	out := make(map[string]uint64, len(keys))
	for i, k := range keys {
		out[k] = uint64(i + 1)
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Write emits a TFOD CSV, one row per annotation in ascending annotation-ID order. Images
// without annotations, licenses, dataset info, confidence and attributes have no column and are
// silently absent (the lossiness analyzer is responsible for warning about this beforehand).
func (adapter) Write(path string, d *panlabel.Dataset) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(header); err != nil {
		return &panlabel.WriteError{Path: path, Err: err}
	}

	for _, ann := range d.AnnotationsByIDAscending() {
		img, ok := d.Images[ann.ImageID]
		if !ok {
			continue
		}
		cat, ok := d.Categories[ann.CategoryID]
		if !ok {
			continue
		}
		norm := ann.BBox.ToNormalized(img.Size())
		rec := []string{
			img.FileName,
			strconv.FormatUint(uint64(img.Width), 10),
			strconv.FormatUint(uint64(img.Height), 10),
			cat.Name,
			formatFloat(norm.Min.X), formatFloat(norm.Min.Y),
			formatFloat(norm.Max.X), formatFloat(norm.Max.Y),
		}
		if err := cw.Write(rec); err != nil {
			return &panlabel.WriteError{Path: path, Err: err}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return &panlabel.WriteError{Path: path, Err: err}
	}

	if err := fsutil.AtomicWriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &panlabel.WriteError{Path: path, Err: err}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
