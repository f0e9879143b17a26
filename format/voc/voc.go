// Package voc implements the Pascal VOC XML adapter (spec §4.3.4): one XML file per image under
// Annotations/, dimensions read from the XML itself rather than probed from the image.
package voc

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/sensorable/panlabel"
	"github.com/sensorable/panlabel/internal/fsutil"
)

func init() {
	a := adapter{}
	panlabel.RegisterReader(panlabel.FormatVOC, a)
	panlabel.RegisterWriter(panlabel.FormatVOC, a)
}

type adapter struct{}

type xmlSize struct {
	Width  uint32 `xml:"width"`
	Height uint32 `xml:"height"`
	Depth  *int   `xml:"depth"`
}

type xmlBndbox struct {
	Xmin float64 `xml:"xmin"`
	Ymin float64 `xml:"ymin"`
	Xmax float64 `xml:"xmax"`
	Ymax float64 `xml:"ymax"`
}

type xmlObject struct {
	Name      string    `xml:"name"`
	Pose      string    `xml:"pose"`
	Truncated string    `xml:"truncated"`
	Difficult string    `xml:"difficult"`
	Occluded  string    `xml:"occluded"`
	Bndbox    xmlBndbox `xml:"bndbox"`
}

type xmlAnnotation struct {
	XMLName  xml.Name    `xml:"annotation"`
	Folder   string      `xml:"folder,omitempty"`
	Filename string      `xml:"filename"`
	Size     xmlSize     `xml:"size"`
	Objects  []xmlObject `xml:"object"`
}

// Read parses every *.xml directly under <path>/Annotations (non-recursive, per §4.3.4),
// parallelizing per-file parsing the way the teacher's ProcessImages worker pool parallelizes
// per-file image work, then assigns IDs from the deterministically sorted file list so output
// never depends on goroutine completion order.
func (adapter) Read(path string) (*panlabel.Dataset, error) {
	annDir := filepath.Join(path, "Annotations")
	files, err := fsutil.FilesWithExt(annDir, ".xml")
	if err != nil {
		return nil, &panlabel.IoError{Path: annDir, Err: err}
	}

	type parsed struct {
		path string
		ann  xmlAnnotation
		err  error
	}
	results := make([]parsed, len(files))

	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	if workers > len(files) {
		workers = len(files)
	}
	jobs := make(chan int)
	done := make(chan struct{})
	for w := 0; w < workers; w++ {
		go func() {
			for i := range jobs {
				data, err := os.ReadFile(files[i])
				if err != nil {
					results[i] = parsed{path: files[i], err: &panlabel.IoError{Path: files[i], Err: err}}
					continue
				}
				var ann xmlAnnotation
				if err := xml.Unmarshal(data, &ann); err != nil {
					results[i] = parsed{path: files[i], err: &panlabel.ParseError{Path: files[i], Err: err}}
					continue
				}
				results[i] = parsed{path: files[i], ann: ann}
			}
			done <- struct{}{}
		}()
	}
	for i := range files {
		jobs <- i
	}
	close(jobs)
	for w := 0; w < workers; w++ {
		<-done
	}

	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
	}

	d := panlabel.NewDataset()
	categoryIDs := make(map[string]uint64)
	nextAnnotationID := uint64(1)

	for i, r := range results {
		imageID := panlabel.ImageID(i + 1)
		size := panlabel.ImageSize{Width: r.ann.Size.Width, Height: r.ann.Size.Height}

		attrs := map[string]string{}
		if r.ann.Size.Depth != nil {
			attrs["depth"] = strconv.Itoa(*r.ann.Size.Depth)
		}
		fileName := r.ann.Filename
		if fileName == "" {
			fileName = strings.TrimSuffix(filepath.Base(r.path), filepath.Ext(r.path))
		}
		d.AddImage(panlabel.Image{
			ID: imageID, FileName: fsutil.NormalizeSlashes(fileName),
			Width: size.Width, Height: size.Height, Attributes: attrs,
		})

		for _, obj := range r.ann.Objects {
			catID, ok := categoryIDs[obj.Name]
			if !ok {
				catID = uint64(len(categoryIDs) + 1)
				categoryIDs[obj.Name] = catID
				d.AddCategory(panlabel.Category{ID: panlabel.CategoryID(catID), Name: obj.Name})
			}

			bbox, err := panlabel.NewPixelBBox(obj.Bndbox.Xmin, obj.Bndbox.Ymin, obj.Bndbox.Xmax, obj.Bndbox.Ymax)
			if err != nil {
				return nil, &panlabel.SchemaError{Path: r.path, Field: "bndbox", Message: err.Error()}
			}

			annAttrs := map[string]string{}
			if obj.Pose != "" {
				annAttrs[panlabel.AttrPose] = obj.Pose
			}
			if v, ok := normalizeBool(obj.Truncated); ok {
				annAttrs[panlabel.AttrTruncated] = v
			}
			if v, ok := normalizeBool(obj.Difficult); ok {
				annAttrs[panlabel.AttrDifficult] = v
			}
			if v, ok := normalizeBool(obj.Occluded); ok {
				annAttrs[panlabel.AttrOccluded] = v
			}

			d.AddAnnotation(panlabel.Annotation{
				ID: panlabel.AnnotationID(nextAnnotationID), ImageID: imageID,
				CategoryID: panlabel.CategoryID(catID), BBox: bbox, Attributes: annAttrs,
			})
			nextAnnotationID++
		}
	}

	// categoryIDs were assigned while iterating results in deterministic file order (the
	// parallel stage above only fills in per-file data, never the shared category table), so
	// the category IDs themselves come out deterministic despite the parallel parse.
	return d, nil
}

// normalizeBool maps VOC's assorted truthy/falsy spellings onto "1"/"0"; anything else is
// reported as absent so the caller omits the attribute rather than guessing (§4.3.4, §4.3.6).
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

// Write emits one XML file per image (including images with zero annotations), preserving the
// image's relative subdirectory structure under Annotations/.
func (adapter) Write(path string, d *panlabel.Dataset) error {
	staging, err := fsutil.PrepareStagingDir(path)
	if err != nil {
		return &panlabel.WriteError{Path: path, Err: err}
	}
	annDir := filepath.Join(staging, "Annotations")
	if err := os.MkdirAll(annDir, 0o755); err != nil {
		return &panlabel.WriteError{Path: path, Err: err}
	}

	for _, img := range d.ImagesByIDAscending() {
		ann := xmlAnnotation{
			Filename: img.FileName,
			Size:     xmlSize{Width: img.Width, Height: img.Height},
		}
		if depth, ok := img.Attributes["depth"]; ok {
			if n, err := strconv.Atoi(depth); err == nil {
				ann.Size.Depth = &n
			}
		}

		for _, a := range d.AnnotationsForImage(img.ID) {
			cat := d.Categories[a.CategoryID]
			obj := xmlObject{Name: cat.Name, Pose: a.Attributes[panlabel.AttrPose]}
			if v, ok := normalizeBool(a.Attributes[panlabel.AttrTruncated]); ok {
				obj.Truncated = v
			}
			if v, ok := normalizeBool(a.Attributes[panlabel.AttrDifficult]); ok {
				obj.Difficult = v
			}
			if v, ok := normalizeBool(a.Attributes[panlabel.AttrOccluded]); ok {
				obj.Occluded = v
			}
			obj.Bndbox = xmlBndbox{
				Xmin: a.BBox.Min.X, Ymin: a.BBox.Min.Y, Xmax: a.BBox.Max.X, Ymax: a.BBox.Max.Y,
			}
			ann.Objects = append(ann.Objects, obj)
		}

		enc, err := xml.MarshalIndent(ann, "", "  ")
		if err != nil {
			return &panlabel.WriteError{Path: path, Err: err}
		}
		enc = append([]byte(xml.Header), enc...)

		rel := strings.TrimSuffix(img.FileName, filepath.Ext(img.FileName))
		outPath := filepath.Join(annDir, filepath.FromSlash(rel)+".xml")
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return &panlabel.WriteError{Path: path, Err: err}
		}
		if err := os.WriteFile(outPath, enc, 0o644); err != nil {
			return &panlabel.WriteError{Path: path, Err: err}
		}
	}

	if err := fsutil.PromoteStagingDir(staging, path); err != nil {
		return &panlabel.WriteError{Path: path, Err: err}
	}
	return nil
}
