package panlabel

// Diff (§4.7): compares two IR Datasets by ID or by IoU, producing added/removed/changed sets
// at image, category and annotation level.

import "sort"

// MatchMode selects how annotations are paired between the two datasets being diffed.
type MatchMode int

const (
	// MatchByID pairs images by ID and annotations by (image_id, annotation_id).
	MatchByID MatchMode = iota
	// MatchByIoU pairs annotations within an image by maximum IoU above a threshold, greedily
	// and one-to-one.
	MatchByIoU
)

// DefaultIoUThreshold is the default minimum IoU for MatchByIoU (§4.7).
const DefaultIoUThreshold = 0.5

// DiffOptions configures Diff.
type DiffOptions struct {
	Mode         MatchMode
	IoUThreshold float64 // 0 selects DefaultIoUThreshold, only used for MatchByIoU
	Detail       bool
}

// AnnotationDiff describes one annotation-level change.
type AnnotationDiff struct {
	ImageID ImageID     `json:"image_id"`
	A       *Annotation `json:"a,omitempty"` // nil if only present in B (added)
	B       *Annotation `json:"b,omitempty"` // nil if only present in A (removed)
	Changed bool        `json:"changed"`      // both present but category/bbox/confidence/attributes differ
}

// DiffReport is the output of Diff.
type DiffReport struct {
	ImagesAdded        []ImageID        `json:"images_added"`
	ImagesRemoved      []ImageID        `json:"images_removed"`
	CategoriesAdded    []CategoryID     `json:"categories_added"`
	CategoriesRemoved  []CategoryID     `json:"categories_removed"`
	AnnotationsAdded   int              `json:"annotations_added"`
	AnnotationsRemoved int              `json:"annotations_removed"`
	AnnotationsChanged int              `json:"annotations_changed"`
	Details            []AnnotationDiff `json:"details,omitempty"` // populated only when Detail is requested
}

// Diff compares a (before) and b (after) per opts and returns the structured differences.
func Diff(a, b *Dataset, opts DiffOptions) DiffReport {
	var report DiffReport

	report.ImagesAdded, report.ImagesRemoved = diffIDSets(imageIDSet(a), imageIDSet(b))
	report.CategoriesAdded, report.CategoriesRemoved = diffCategoryIDSets(categoryIDSet(a), categoryIDSet(b))

	commonImages := make([]ImageID, 0)
	bImages := imageIDSet(b)
	for id := range imageIDSet(a) {
		if bImages[id] {
			commonImages = append(commonImages, id)
		}
	}
	sort.Slice(commonImages, func(i, j int) bool { return commonImages[i] < commonImages[j] })

	for _, imgID := range commonImages {
		annA := a.AnnotationsForImage(imgID)
		annB := b.AnnotationsForImage(imgID)

		var pairs []AnnotationDiff
		switch opts.Mode {
		case MatchByIoU:
			threshold := opts.IoUThreshold
			if threshold == 0 {
				threshold = DefaultIoUThreshold
			}
			pairs = matchByIoU(imgID, annA, annB, threshold)
		default:
			pairs = matchByID(imgID, annA, annB)
		}

		for _, p := range pairs {
			switch {
			case p.A == nil:
				report.AnnotationsAdded++
			case p.B == nil:
				report.AnnotationsRemoved++
			case p.Changed:
				report.AnnotationsChanged++
			}
		}
		if opts.Detail {
			report.Details = append(report.Details, pairs...)
		}
	}

	return report
}

func imageIDSet(d *Dataset) map[ImageID]bool {
	set := make(map[ImageID]bool, len(d.Images))
	for id := range d.Images {
		set[id] = true
	}
	return set
}

func categoryIDSet(d *Dataset) map[CategoryID]bool {
	set := make(map[CategoryID]bool, len(d.Categories))
	for id := range d.Categories {
		set[id] = true
	}
	return set
}

func diffIDSets(a, b map[ImageID]bool) (added, removed []ImageID) {
	for id := range b {
		if !a[id] {
			added = append(added, id)
		}
	}
	for id := range a {
		if !b[id] {
			removed = append(removed, id)
		}
	}
	sort.Slice(added, func(i, j int) bool { return added[i] < added[j] })
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return added, removed
}

func diffCategoryIDSets(a, b map[CategoryID]bool) (added, removed []CategoryID) {
	for id := range b {
		if !a[id] {
			added = append(added, id)
		}
	}
	for id := range a {
		if !b[id] {
			removed = append(removed, id)
		}
	}
	sort.Slice(added, func(i, j int) bool { return added[i] < added[j] })
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return added, removed
}

func matchByID(imgID ImageID, a, b []Annotation) []AnnotationDiff {
	bByID := make(map[AnnotationID]Annotation, len(b))
	for _, ann := range b {
		bByID[ann.ID] = ann
	}

	seen := make(map[AnnotationID]bool)
	var out []AnnotationDiff
	for _, annA := range a {
		aCopy := annA
		if annB, ok := bByID[annA.ID]; ok {
			seen[annA.ID] = true
			bCopy := annB
			out = append(out, AnnotationDiff{
				ImageID: imgID, A: &aCopy, B: &bCopy, Changed: !annotationsEqual(annA, annB),
			})
		} else {
			out = append(out, AnnotationDiff{ImageID: imgID, A: &aCopy})
		}
	}
	for _, annB := range b {
		if !seen[annB.ID] {
			bCopy := annB
			out = append(out, AnnotationDiff{ImageID: imgID, B: &bCopy})
		}
	}
	return out
}

func matchByIoU(imgID ImageID, a, b []Annotation, threshold float64) []AnnotationDiff {
	type candidate struct {
		ai, bi int
		iou    float64
	}
	var candidates []candidate
	for ai, annA := range a {
		for bi, annB := range b {
			iou := bboxIoU(annA.BBox, annB.BBox)
			if iou >= threshold {
				candidates = append(candidates, candidate{ai, bi, iou})
			}
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].iou > candidates[j].iou })

	matchedA := make(map[int]int) // a index -> b index
	matchedB := make(map[int]bool)
	for _, c := range candidates {
		if _, ok := matchedA[c.ai]; ok {
			continue
		}
		if matchedB[c.bi] {
			continue
		}
		matchedA[c.ai] = c.bi
		matchedB[c.bi] = true
	}

	var out []AnnotationDiff
	for ai, annA := range a {
		aCopy := annA
		if bi, ok := matchedA[ai]; ok {
			bCopy := b[bi]
			out = append(out, AnnotationDiff{
				ImageID: imgID, A: &aCopy, B: &bCopy, Changed: !annotationsEqual(annA, b[bi]),
			})
		} else {
			out = append(out, AnnotationDiff{ImageID: imgID, A: &aCopy})
		}
	}
	for bi, annB := range b {
		if !matchedB[bi] {
			bCopy := annB
			out = append(out, AnnotationDiff{ImageID: imgID, B: &bCopy})
		}
	}
	return out
}

func bboxIoU(a, b PixelBBox) float64 {
	ix1, iy1 := maxF(a.Min.X, b.Min.X), maxF(a.Min.Y, b.Min.Y)
	ix2, iy2 := minF(a.Max.X, b.Max.X), minF(a.Max.Y, b.Max.Y)
	iw, ih := ix2-ix1, iy2-iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	intersection := iw * ih
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func annotationsEqual(a, b Annotation) bool {
	if a.CategoryID != b.CategoryID {
		return false
	}
	if a.BBox != b.BBox {
		return false
	}
	if (a.Confidence == nil) != (b.Confidence == nil) {
		return false
	}
	if a.Confidence != nil && *a.Confidence != *b.Confidence {
		return false
	}
	if len(a.Attributes) != len(b.Attributes) {
		return false
	}
	for k, v := range a.Attributes {
		if b.Attributes[k] != v {
			return false
		}
	}
	return true
}
