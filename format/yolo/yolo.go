// Package yolo implements the YOLO directory adapter (spec §4.3.3): normalized center-format
// boxes, one label file per image, image dimensions recovered by probing image headers.
package yolo

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sensorable/panlabel"
	"github.com/sensorable/panlabel/internal/fsutil"
	"github.com/sensorable/panlabel/internal/imageprobe"
)

func init() {
	a := adapter{}
	panlabel.RegisterReader(panlabel.FormatYOLO, a)
	panlabel.RegisterWriter(panlabel.FormatYOLO, a)
}

type adapter struct{}

// dirs resolves a YOLO root into its labels/images directories, per §4.3.3: path may be the
// dataset root (containing both images/ and labels/) or the labels/ directory itself, in which
// case images/ is its sibling.
func dirs(path string) (root, labelsDir, imagesDir string) {
	if filepath.Base(filepath.Clean(path)) == "labels" {
		labelsDir = path
		root = filepath.Dir(path)
		imagesDir = filepath.Join(root, "images")
		return
	}
	root = path
	labelsDir = filepath.Join(root, "labels")
	imagesDir = filepath.Join(root, "images")
	return
}

type dataYAML struct {
	Names yaml.Node `yaml:"names"`
	NC    int       `yaml:"nc,omitempty"`
}

// loadClassNames resolves the class-ID-to-name map with precedence data.yaml > classes.txt >
// nil (meaning: infer from observed class IDs, stringifying the ID as the name).
func loadClassNames(root string) (map[int]string, error) {
	if names, ok, err := loadFromYAML(filepath.Join(root, "data.yaml")); ok || err != nil {
		return names, err
	}
	if names, ok, err := loadFromClassesTxt(filepath.Join(root, "classes.txt")); ok || err != nil {
		return names, err
	}
	return nil, nil
}

func loadFromYAML(path string) (map[int]string, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &panlabel.IoError{Path: path, Err: err}
	}

	var doc dataYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, false, &panlabel.ParseError{Path: path, Err: err}
	}

	names := make(map[int]string)
	switch doc.Names.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := doc.Names.Decode(&list); err != nil {
			return nil, false, &panlabel.ParseError{Path: path, Err: err}
		}
		for i, n := range list {
			names[i] = n
		}
	case yaml.MappingNode:
		var m map[int]string
		if err := doc.Names.Decode(&m); err != nil {
			return nil, false, &panlabel.ParseError{Path: path, Err: err}
		}
		names = m
	default:
		return nil, false, &panlabel.SchemaError{Path: path, Field: "names", Message: "missing or unrecognized names field"}
	}
	return names, true, nil
}

func loadFromClassesTxt(path string) (map[int]string, bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &panlabel.IoError{Path: path, Err: err}
	}
	defer f.Close()

	names := make(map[int]string)
	scanner := bufio.NewScanner(f)
	for i := 0; scanner.Scan(); i++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		names[i] = line
	}
	if err := scanner.Err(); err != nil {
		return nil, false, &panlabel.IoError{Path: path, Err: err}
	}
	return names, true, nil
}

// Read walks labelsDir recursively, parsing each .txt label file, and resolves each one's image
// by probing imagesDir at the same relative path through imageprobe's extension order.
func (adapter) Read(path string) (*panlabel.Dataset, error) {
	root, labelsDir, imagesDir := dirs(path)

	classNames, err := loadClassNames(root)
	if err != nil {
		return nil, err
	}

	labelFiles, err := fsutil.FilesWithExtRecursive(labelsDir, ".txt")
	if err != nil {
		return nil, &panlabel.IoError{Path: labelsDir, Err: err}
	}

	d := panlabel.NewDataset()
	observedClasses := make(map[int]bool)
	nextImageID := uint64(1)
	nextAnnotationID := uint64(1)

	for _, labelPath := range labelFiles {
		rel, err := filepath.Rel(labelsDir, labelPath)
		if err != nil {
			return nil, &panlabel.IoError{Path: labelPath, Err: err}
		}
		relDir := filepath.Dir(rel)
		baseNoExt := fsutil.BaseNoExt(labelPath)

		imgSubdir := imagesDir
		if relDir != "." {
			imgSubdir = filepath.Join(imagesDir, relDir)
		}
		imgPath, width, height, err := imageprobe.FindAndProbe(imgSubdir, baseNoExt)
		if err != nil {
			return nil, &panlabel.IoError{Path: labelPath, Err: err}
		}
		imgRel := fsutil.NormalizeSlashes(mustRel(imagesDir, imgPath))

		imageID := panlabel.ImageID(nextImageID)
		nextImageID++
		d.AddImage(panlabel.Image{ID: imageID, FileName: imgRel, Width: width, Height: height})

		lines, err := readLabelLines(labelPath)
		if err != nil {
			return nil, err
		}
		for _, ln := range lines {
			classID, bbox, err := parseLabelLine(labelPath, ln)
			if err != nil {
				return nil, err
			}
			observedClasses[classID] = true
			pixel := panlabel.FromNormalized(bbox, panlabel.ImageSize{Width: width, Height: height})
			d.AddAnnotation(panlabel.Annotation{
				ID:         panlabel.AnnotationID(nextAnnotationID),
				ImageID:    imageID,
				CategoryID: panlabel.CategoryID(classID),
				BBox:       pixel,
			})
			nextAnnotationID++
		}
	}

	if classNames == nil {
		classNames = make(map[int]string)
		for id := range observedClasses {
			classNames[id] = strconv.Itoa(id)
		}
	}
	ids := make([]int, 0, len(classNames))
	for id := range classNames {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		d.AddCategory(panlabel.Category{ID: panlabel.CategoryID(id), Name: classNames[id]})
	}

	return d, nil
}

func mustRel(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return rel
}

func readLabelLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &panlabel.IoError{Path: path, Err: err}
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, &panlabel.IoError{Path: path, Err: err}
	}
	return lines, nil
}

// parseLabelLine parses one YOLO label line, rejecting anything but exactly 5 whitespace
// tokens (segmentation/pose lines carry extra coordinate pairs and are rejected per §4.3.3).
func parseLabelLine(path, line string) (int, panlabel.NormalizedBBox, error) {
	tokens := strings.Fields(line)
	if len(tokens) != 5 {
		return 0, panlabel.NormalizedBBox{}, &panlabel.UnsupportedFeature{
			Path: path, Feature: fmt.Sprintf("label line with %d tokens (expected 5)", len(tokens)),
		}
	}

	classID, err := strconv.Atoi(tokens[0])
	if err != nil {
		return 0, panlabel.NormalizedBBox{}, &panlabel.ParseError{Path: path, Err: err}
	}
	vals := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(tokens[i+1], 64)
		if err != nil {
			return 0, panlabel.NormalizedBBox{}, &panlabel.ParseError{Path: path, Err: err}
		}
		vals[i] = v
	}
	xc, yc, w, h := vals[0], vals[1], vals[2], vals[3]
	bbox, err := panlabel.NewNormalizedBBox(xc-w/2, yc-h/2, xc+w/2, yc+h/2)
	if err != nil {
		return 0, panlabel.NormalizedBBox{}, &panlabel.SchemaError{Path: path, Field: "bbox", Message: err.Error()}
	}
	return classID, bbox, nil
}

// Write creates images/ and labels/ under path, writes data.yaml, and one label file per
// image (empty when the image has no annotations). It never copies image binaries (§4.3.3).
func (adapter) Write(path string, d *panlabel.Dataset) error {
	staging, err := fsutil.PrepareStagingDir(path)
	if err != nil {
		return &panlabel.WriteError{Path: path, Err: err}
	}

	imagesDir := filepath.Join(staging, "images")
	labelsDir := filepath.Join(staging, "labels")
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return &panlabel.WriteError{Path: path, Err: err}
	}
	if err := os.MkdirAll(labelsDir, 0o755); err != nil {
		return &panlabel.WriteError{Path: path, Err: err}
	}

	for _, img := range d.ImagesByIDAscending() {
		var b strings.Builder
		for _, ann := range d.AnnotationsForImage(img.ID) {
			xc := (ann.BBox.Min.X + ann.BBox.Max.X) / 2 / float64(img.Width)
			yc := (ann.BBox.Min.Y + ann.BBox.Max.Y) / 2 / float64(img.Height)
			w := ann.BBox.Width() / float64(img.Width)
			h := ann.BBox.Height() / float64(img.Height)
			fmt.Fprintf(&b, "%d %s %s %s %s\n", uint64(ann.CategoryID),
				format6(xc), format6(yc), format6(w), format6(h))
		}

		labelPath := filepath.Join(labelsDir, fsutil.BaseNoExt(img.FileName)+".txt")
		if err := os.MkdirAll(filepath.Dir(labelPath), 0o755); err != nil {
			return &panlabel.WriteError{Path: path, Err: err}
		}
		if err := os.WriteFile(labelPath, []byte(b.String()), 0o644); err != nil {
			return &panlabel.WriteError{Path: path, Err: err}
		}
	}

	if err := writeDataYAML(filepath.Join(staging, "data.yaml"), d); err != nil {
		return &panlabel.WriteError{Path: path, Err: err}
	}

	if err := fsutil.PromoteStagingDir(staging, path); err != nil {
		return &panlabel.WriteError{Path: path, Err: err}
	}
	return nil
}

func format6(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func writeDataYAML(path string, d *panlabel.Dataset) error {
	names := make(map[int]string)
	for _, cat := range d.CategoriesByIDAscending() {
		names[int(cat.ID)] = cat.Name
	}
	doc := struct {
		Names map[int]string `yaml:"names"`
		NC    int            `yaml:"nc"`
	}{Names: names, NC: len(names)}

	enc, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, enc, 0o644)
}
