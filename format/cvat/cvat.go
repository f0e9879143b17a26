// Package cvat implements the CVAT XML adapter (spec §4.3.6): a single XML document with one
// <image> per dataset image and one <box> per annotation; polygons and points are rejected.
package cvat

import (
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/sensorable/panlabel"
	"github.com/sensorable/panlabel/internal/fsutil"
)

func init() {
	a := adapter{}
	panlabel.RegisterReader(panlabel.FormatCVAT, a)
	panlabel.RegisterWriter(panlabel.FormatCVAT, a)
}

type adapter struct{}

type xmlLabel struct {
	Name string `xml:"name"`
	Type string `xml:"type"`
}

type xmlMeta struct {
	Task struct {
		Name   string `xml:"name"`
		Labels struct {
			Label []xmlLabel `xml:"label"`
		} `xml:"labels"`
	} `xml:"task"`
}

type xmlAttribute struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlBox struct {
	Label      string         `xml:"label,attr"`
	Xtl        float64        `xml:"xtl,attr"`
	Ytl        float64        `xml:"ytl,attr"`
	Xbr        float64        `xml:"xbr,attr"`
	Ybr        float64        `xml:"ybr,attr"`
	Occluded   string         `xml:"occluded,attr"`
	ZOrder     string         `xml:"z_order,attr"`
	Source     string         `xml:"source,attr"`
	Attributes []xmlAttribute `xml:"attribute"`
}

type xmlImage struct {
	ID       string     `xml:"id,attr"`
	Name     string     `xml:"name,attr"`
	Width    uint32     `xml:"width,attr"`
	Height   uint32     `xml:"height,attr"`
	Boxes    []xmlBox   `xml:"box"`
	Polygons []struct{} `xml:"polygon"`
	Points   []struct{} `xml:"points"`
}

type xmlAnnotations struct {
	XMLName xml.Name   `xml:"annotations"`
	Meta    *xmlMeta   `xml:"meta"`
	Images  []xmlImage `xml:"image"`
}

// Read parses a CVAT XML document. Only <box> annotations are supported; <polygon> and <points>
// are hard errors. If <meta><task><labels> is present, it constrains the allowed box labels to
// those declared with <type>bbox</type> or no type at all; otherwise categories are inferred
// from the labels actually seen on boxes, in document order.
func (adapter) Read(path string) (*panlabel.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &panlabel.IoError{Path: path, Err: err}
	}

	var doc xmlAnnotations
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &panlabel.ParseError{Path: path, Err: err}
	}

	var allowedLabels map[string]bool
	var declaredOrder []string
	if doc.Meta != nil {
		allowedLabels = make(map[string]bool)
		for _, l := range doc.Meta.Task.Labels.Label {
			if l.Type == "" || l.Type == "bbox" {
				allowedLabels[l.Name] = true
				declaredOrder = append(declaredOrder, l.Name)
			}
		}
	}

	d := panlabel.NewDataset()
	categoryIDs := make(map[string]uint64)
	addCategory := func(name string) uint64 {
		if id, ok := categoryIDs[name]; ok {
			return id
		}
		id := uint64(len(categoryIDs) + 1)
		categoryIDs[name] = id
		cat := panlabel.Category{ID: panlabel.CategoryID(id), Name: name}
		if doc.Meta == nil {
			cat.Attributes = map[string]string{"cvat_inferred": "1"}
		}
		d.AddCategory(cat)
		return id
	}
	for _, name := range declaredOrder {
		addCategory(name)
	}

	nextAnnotationID := uint64(1)
	for i, img := range doc.Images {
		if len(img.Polygons) > 0 {
			return nil, &panlabel.UnsupportedFeature{Path: path, Feature: "polygon"}
		}
		if len(img.Points) > 0 {
			return nil, &panlabel.UnsupportedFeature{Path: path, Feature: "points"}
		}

		imageID := panlabel.ImageID(i + 1)
		attrs := map[string]string{}
		if img.ID != "" {
			attrs["cvat_image_id"] = img.ID
		}
		d.AddImage(panlabel.Image{ID: imageID, FileName: img.Name, Width: img.Width, Height: img.Height, Attributes: attrs})

		for _, box := range img.Boxes {
			if allowedLabels != nil && !allowedLabels[box.Label] {
				return nil, &panlabel.SchemaError{Path: path, Field: "box.label",
					Message: fmt.Sprintf("label %q is not declared in meta.task.labels", box.Label)}
			}
			catID := addCategory(box.Label)

			bbox, err := panlabel.NewPixelBBox(box.Xtl, box.Ytl, box.Xbr, box.Ybr)
			if err != nil {
				return nil, &panlabel.SchemaError{Path: path, Field: "box", Message: err.Error()}
			}

			annAttrs := map[string]string{}
			if v, ok := normalizeBool(box.Occluded); ok {
				annAttrs[panlabel.AttrOccluded] = v
			}
			if box.ZOrder != "" && box.ZOrder != "0" {
				annAttrs["cvat_z_order"] = box.ZOrder
			}
			if box.Source != "" {
				annAttrs["cvat_source"] = box.Source
			}
			for _, a := range box.Attributes {
				annAttrs["cvat_attr_"+a.Name] = a.Value
			}

			d.AddAnnotation(panlabel.Annotation{
				ID: panlabel.AnnotationID(nextAnnotationID), ImageID: imageID,
				CategoryID: panlabel.CategoryID(catID), BBox: bbox, Attributes: annAttrs,
			})
			nextAnnotationID++
		}
	}

	return d, nil
}

// normalizeBool mirrors the VOC adapter's boolean-spelling normalization (§4.3.4, §4.3.6); it
// is duplicated rather than shared since adapters must not import one another.
func normalizeBool(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "1":
		return "1", true
	case "false", "no", "0":
		return "0", true
	default:
		return "", false
	}
}

// Write emits a single XML document with a minimal meta/task/labels block listing only the
// categories actually referenced by an annotation, every image (including unannotated ones),
// and boxes sorted by ascending annotation ID.
func (adapter) Write(path string, d *panlabel.Dataset) error {
	referenced := make(map[panlabel.CategoryID]bool)
	for _, ann := range d.Annotations {
		referenced[ann.CategoryID] = true
	}

	doc := xmlAnnotations{}
	meta := xmlMeta{}
	meta.Task.Name = "panlabel export"
	for _, cat := range d.CategoriesByIDAscending() {
		if referenced[cat.ID] {
			meta.Task.Labels.Label = append(meta.Task.Labels.Label, xmlLabel{Name: cat.Name, Type: "bbox"})
		}
	}
	doc.Meta = &meta

	for i, img := range d.ImagesByIDAscending() {
		idAttr := strconv.Itoa(i)
		if v, ok := img.Attributes["cvat_image_id"]; ok {
			idAttr = v
		}
		xi := xmlImage{ID: idAttr, Name: img.FileName, Width: img.Width, Height: img.Height}

		anns := d.AnnotationsForImage(img.ID)
		sort.Slice(anns, func(a, b int) bool { return anns[a].ID < anns[b].ID })
		for _, ann := range anns {
			cat := d.Categories[ann.CategoryID]
			occluded := "0"
			if v, ok := normalizeBool(ann.Attributes[panlabel.AttrOccluded]); ok {
				occluded = v
			}
			zOrder := ann.Attributes["cvat_z_order"]
			if zOrder == "" {
				zOrder = "0"
			}
			source := ann.Attributes["cvat_source"]
			if source == "" {
				source = "manual"
			}

			box := xmlBox{
				Label: cat.Name, Xtl: ann.BBox.Min.X, Ytl: ann.BBox.Min.Y,
				Xbr: ann.BBox.Max.X, Ybr: ann.BBox.Max.Y,
				Occluded: occluded, ZOrder: zOrder, Source: source,
			}
			for k, v := range ann.Attributes {
				if name, ok := strings.CutPrefix(k, "cvat_attr_"); ok {
					box.Attributes = append(box.Attributes, xmlAttribute{Name: name, Value: v})
				}
			}
			sort.Slice(box.Attributes, func(a, b int) bool { return box.Attributes[a].Name < box.Attributes[b].Name })

			xi.Boxes = append(xi.Boxes, box)
		}
		doc.Images = append(doc.Images, xi)
	}

	enc, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &panlabel.WriteError{Path: path, Err: err}
	}
	enc = append([]byte(xml.Header), enc...)

	if err := fsutil.AtomicWriteFile(path, enc, 0o644); err != nil {
		return &panlabel.WriteError{Path: path, Err: err}
	}
	return nil
}
