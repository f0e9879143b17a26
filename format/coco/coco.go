// Package coco implements the COCO JSON adapter (spec §4.3.1): conditionally lossy, the most
// widely interchanged of the supported formats.
package coco

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/sensorable/panlabel"
	"github.com/sensorable/panlabel/internal/fsutil"
)

func init() {
	a := adapter{}
	panlabel.RegisterReader(panlabel.FormatCOCO, a)
	panlabel.RegisterWriter(panlabel.FormatCOCO, a)
}

type adapter struct{}

// jsonYear accepts either a JSON number or a JSON string, per §4.3.1 ("info.year accepts
// integer or string").
type jsonYear int

func (y *jsonYear) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*y = jsonYear(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("coco: info.year is neither a number nor a string: %s", b)
	}
	if s == "" {
		*y = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("coco: info.year string %q is not an integer: %w", s, err)
	}
	*y = jsonYear(n)
	return nil
}

type jsonInfo struct {
	Description string  `json:"description,omitempty"`
	Year        jsonYear `json:"year,omitempty"`
	Version     string  `json:"version,omitempty"`
	Contributor string  `json:"contributor,omitempty"`
	URL         string  `json:"url,omitempty"`
}

type jsonLicense struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type jsonImage struct {
	ID           uint64 `json:"id"`
	Width        uint32 `json:"width"`
	Height       uint32 `json:"height"`
	FileName     string `json:"file_name"`
	License      *int64 `json:"license,omitempty"`
	DateCaptured string `json:"date_captured,omitempty"`
}

type jsonCategory struct {
	ID            uint64 `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory,omitempty"`
}

type jsonAnnotation struct {
	ID           uint64        `json:"id"`
	ImageID      uint64        `json:"image_id"`
	CategoryID   uint64        `json:"category_id"`
	BBox         [4]float64    `json:"bbox"`
	Area         float64       `json:"area"`
	ISCrowd      int           `json:"iscrowd"`
	Score        *float64      `json:"score,omitempty"`
	Segmentation []interface{} `json:"segmentation"`
}

type jsonDataset struct {
	Info        *jsonInfo        `json:"info,omitempty"`
	Licenses    []jsonLicense    `json:"licenses,omitempty"`
	Images      []jsonImage      `json:"images"`
	Categories  []jsonCategory   `json:"categories"`
	Annotations []jsonAnnotation `json:"annotations"`
}

// Read parses a COCO JSON file. Bbox [x,y,w,h] absolute pixels is converted to IR XYXY; score
// maps to confidence; segmentation is accepted but not stored.
func (adapter) Read(path string) (*panlabel.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &panlabel.IoError{Path: path, Err: err}
	}

	var doc jsonDataset
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &panlabel.ParseError{Path: path, Err: err}
	}

	d := panlabel.NewDataset()
	if doc.Info != nil {
		d.Info = &panlabel.Info{Description: doc.Info.Description, Year: int(doc.Info.Year)}
	}
	for _, l := range doc.Licenses {
		d.Licenses = append(d.Licenses, panlabel.License{ID: l.ID, Name: l.Name, URL: l.URL})
	}
	for _, img := range doc.Images {
		d.AddImage(panlabel.Image{
			ID:           panlabel.ImageID(img.ID),
			FileName:     img.FileName,
			Width:        img.Width,
			Height:       img.Height,
			LicenseID:    img.License,
			DateCaptured: img.DateCaptured,
		})
	}
	for _, cat := range doc.Categories {
		d.AddCategory(panlabel.Category{
			ID:            panlabel.CategoryID(cat.ID),
			Name:          cat.Name,
			Supercategory: cat.Supercategory,
		})
	}
	for _, ann := range doc.Annotations {
		x, y, w, h := ann.BBox[0], ann.BBox[1], ann.BBox[2], ann.BBox[3]
		bbox, err := panlabel.FromCOCO(x, y, w, h)
		if err != nil {
			return nil, &panlabel.SchemaError{Path: path, Field: "bbox", Message: err.Error()}
		}
		d.AddAnnotation(panlabel.Annotation{
			ID:         panlabel.AnnotationID(ann.ID),
			ImageID:    panlabel.ImageID(ann.ImageID),
			CategoryID: panlabel.CategoryID(ann.CategoryID),
			BBox:       bbox,
			Confidence: ann.Score,
		})
	}

	return d, nil
}

// Write serializes d as COCO JSON with deterministic ascending-ID ordering. Dataset info's
// free-form Name has no COCO slot and is dropped (§4.4 drop_dataset_info_name); annotation
// attributes have no canonical COCO home and are dropped (§4.4 drop_annotation_attributes).
func (adapter) Write(path string, d *panlabel.Dataset) error {
	doc := jsonDataset{
		Images:      make([]jsonImage, 0, len(d.Images)),
		Categories:  make([]jsonCategory, 0, len(d.Categories)),
		Annotations: make([]jsonAnnotation, 0, len(d.Annotations)),
	}

	if d.Info != nil {
		doc.Info = &jsonInfo{Description: d.Info.Description, Year: jsonYear(d.Info.Year)}
	}

	licenses := append([]panlabel.License(nil), d.Licenses...)
	sort.Slice(licenses, func(i, j int) bool { return licenses[i].ID < licenses[j].ID })
	for _, l := range licenses {
		doc.Licenses = append(doc.Licenses, jsonLicense{ID: l.ID, Name: l.Name, URL: l.URL})
	}

	for _, img := range d.ImagesByIDAscending() {
		doc.Images = append(doc.Images, jsonImage{
			ID: uint64(img.ID), Width: img.Width, Height: img.Height, FileName: img.FileName,
			License: img.LicenseID, DateCaptured: img.DateCaptured,
		})
	}
	for _, cat := range d.CategoriesByIDAscending() {
		doc.Categories = append(doc.Categories, jsonCategory{
			ID: uint64(cat.ID), Name: cat.Name, Supercategory: cat.Supercategory,
		})
	}
	for _, ann := range d.AnnotationsByIDAscending() {
		x, y, w, h := ann.BBox.ToCOCO()
		doc.Annotations = append(doc.Annotations, jsonAnnotation{
			ID: uint64(ann.ID), ImageID: uint64(ann.ImageID), CategoryID: uint64(ann.CategoryID),
			BBox: [4]float64{x, y, w, h}, Area: w * h, ISCrowd: 0,
			Score:        ann.Confidence,
			Segmentation: []interface{}{},
		})
	}

	enc, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &panlabel.WriteError{Path: path, Err: err}
	}
	if err := fsutil.AtomicWriteFile(path, enc, 0o644); err != nil {
		return &panlabel.WriteError{Path: path, Err: err}
	}
	return nil
}
