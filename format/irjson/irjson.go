// Package irjson implements the canonical, lossless IR JSON adapter (spec §4.3.7). Round-
// tripping a Dataset through Write and Read must be byte-identical modulo JSON whitespace.
package irjson

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/sensorable/panlabel"
	"github.com/sensorable/panlabel/internal/fsutil"
)

func init() {
	a := adapter{}
	panlabel.RegisterReader(panlabel.FormatIRJSON, a)
	panlabel.RegisterWriter(panlabel.FormatIRJSON, a)
}

type adapter struct{}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type jsonBBox struct {
	Min jsonPoint `json:"min"`
	Max jsonPoint `json:"max"`
}

type jsonInfo struct {
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	Year        int               `json:"year,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

type jsonLicense struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type jsonImage struct {
	ID           uint64            `json:"id"`
	FileName     string            `json:"file_name"`
	Width        uint32            `json:"width"`
	Height       uint32            `json:"height"`
	LicenseID    *int64            `json:"license_id,omitempty"`
	DateCaptured string            `json:"date_captured,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

type jsonCategory struct {
	ID            uint64            `json:"id"`
	Name          string            `json:"name"`
	Supercategory string            `json:"supercategory,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

type jsonAnnotation struct {
	ID         uint64            `json:"id"`
	ImageID    uint64            `json:"image_id"`
	CategoryID uint64            `json:"category_id"`
	BBox       jsonBBox          `json:"bbox"`
	Confidence *float64          `json:"confidence,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type jsonDataset struct {
	Info        *jsonInfo        `json:"info,omitempty"`
	Licenses    []jsonLicense    `json:"licenses,omitempty"`
	Images      []jsonImage      `json:"images"`
	Categories  []jsonCategory   `json:"categories"`
	Annotations []jsonAnnotation `json:"annotations"`
}

// Read parses the canonical IR JSON file at path.
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
		d.Info = &panlabel.Info{
			Name:        doc.Info.Name,
			Description: doc.Info.Description,
			Year:        doc.Info.Year,
			Attributes:  doc.Info.Attributes,
		}
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
			LicenseID:    img.LicenseID,
			DateCaptured: img.DateCaptured,
			Attributes:   img.Attributes,
		})
	}
	for _, cat := range doc.Categories {
		d.AddCategory(panlabel.Category{
			ID:            panlabel.CategoryID(cat.ID),
			Name:          cat.Name,
			Supercategory: cat.Supercategory,
			Attributes:    cat.Attributes,
		})
	}
	for _, ann := range doc.Annotations {
		bbox, err := panlabel.NewPixelBBox(ann.BBox.Min.X, ann.BBox.Min.Y, ann.BBox.Max.X, ann.BBox.Max.Y)
		if err != nil {
			return nil, &panlabel.SchemaError{Path: path, Field: "bbox", Message: err.Error()}
		}
		d.AddAnnotation(panlabel.Annotation{
			ID:         panlabel.AnnotationID(ann.ID),
			ImageID:    panlabel.ImageID(ann.ImageID),
			CategoryID: panlabel.CategoryID(ann.CategoryID),
			BBox:       bbox,
			Confidence: ann.Confidence,
			Attributes: ann.Attributes,
		})
	}

	return d, nil
}

// Write serializes d to path as canonical IR JSON, sorted by ascending numeric ID throughout.
func (adapter) Write(path string, d *panlabel.Dataset) error {
	doc := jsonDataset{
		Images:      make([]jsonImage, 0, len(d.Images)),
		Categories:  make([]jsonCategory, 0, len(d.Categories)),
		Annotations: make([]jsonAnnotation, 0, len(d.Annotations)),
	}

	if d.Info != nil {
		doc.Info = &jsonInfo{
			Name:        d.Info.Name,
			Description: d.Info.Description,
			Year:        d.Info.Year,
			Attributes:  d.Info.Attributes,
		}
	}
	licenses := append([]panlabel.License(nil), d.Licenses...)
	sort.Slice(licenses, func(i, j int) bool { return licenses[i].ID < licenses[j].ID })
	for _, l := range licenses {
		doc.Licenses = append(doc.Licenses, jsonLicense{ID: l.ID, Name: l.Name, URL: l.URL})
	}

	for _, img := range d.ImagesByIDAscending() {
		doc.Images = append(doc.Images, jsonImage{
			ID: uint64(img.ID), FileName: img.FileName, Width: img.Width, Height: img.Height,
			LicenseID: img.LicenseID, DateCaptured: img.DateCaptured, Attributes: img.Attributes,
		})
	}
	for _, cat := range d.CategoriesByIDAscending() {
		doc.Categories = append(doc.Categories, jsonCategory{
			ID: uint64(cat.ID), Name: cat.Name, Supercategory: cat.Supercategory, Attributes: cat.Attributes,
		})
	}
	for _, ann := range d.AnnotationsByIDAscending() {
		doc.Annotations = append(doc.Annotations, jsonAnnotation{
			ID: uint64(ann.ID), ImageID: uint64(ann.ImageID), CategoryID: uint64(ann.CategoryID),
			BBox: jsonBBox{
				Min: jsonPoint{X: ann.BBox.Min.X, Y: ann.BBox.Min.Y},
				Max: jsonPoint{X: ann.BBox.Max.X, Y: ann.BBox.Max.Y},
			},
			Confidence: ann.Confidence, Attributes: ann.Attributes,
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
