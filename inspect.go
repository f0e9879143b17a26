package panlabel

// Inspector (§4.7): derived, semantic-only analytics over an IR Dataset. Presentation
// (terminal/HTML rendering) is an external collaborator; this only computes the numbers.

import "sort"

// BBoxQuality summarizes bounding-box health across a Dataset.
type BBoxQuality struct {
	DegenerateCount  int       `json:"degenerate_count"`
	OutOfBoundsCount int       `json:"out_of_bounds_count"`
	AreaMin          float64   `json:"area_min"`
	AreaMedian       float64   `json:"area_median"`
	AreaMax          float64   `json:"area_max"`
	AspectRatios     []float64 `json:"aspect_ratios"` // width/height, one per non-degenerate annotation, sorted ascending
}

// CooccurrencePair is one entry in the top-N label co-occurrence list.
type CooccurrencePair struct {
	LabelA string `json:"label_a"`
	LabelB string `json:"label_b"`
	Count  int    `json:"count"`
}

// InspectionReport is the output of Inspect.
type InspectionReport struct {
	ImageCount      int                `json:"image_count"`
	AnnotationCount int                `json:"annotation_count"`
	CategoryCount   int                `json:"category_count"`
	LabelHistogram  map[string]int     `json:"label_histogram"`
	TopCooccurrence []CooccurrencePair `json:"top_cooccurrence"`
	BBoxQuality     BBoxQuality        `json:"bbox_quality"`
}

// Inspect computes counts, a label histogram, top-N category co-occurrence (pairs of
// categories appearing on the same image) and bbox quality metrics at tolerance px, over d.
func Inspect(d *Dataset, topN int, tolerance float64) InspectionReport {
	report := InspectionReport{
		ImageCount:      len(d.Images),
		AnnotationCount: len(d.Annotations),
		CategoryCount:   len(d.Categories),
		LabelHistogram:  make(map[string]int),
	}

	var areas []float64
	var ratios []float64
	cooccur := make(map[[2]string]int)

	for _, img := range d.ImagesInOrder() {
		anns := d.AnnotationsForImage(img.ID)

		labelsOnImage := make(map[string]bool)
		for _, a := range anns {
			cat := d.Categories[a.CategoryID]
			report.LabelHistogram[cat.Name]++
			labelsOnImage[cat.Name] = true

			w, h := a.BBox.Width(), a.BBox.Height()
			if w <= 0 || h <= 0 {
				report.BBoxQuality.DegenerateCount++
				continue
			}
			areas = append(areas, w*h)
			ratios = append(ratios, w/h)

			if a.BBox.Min.X < -tolerance || a.BBox.Min.Y < -tolerance ||
				a.BBox.Max.X > float64(img.Width)+tolerance || a.BBox.Max.Y > float64(img.Height)+tolerance {
				report.BBoxQuality.OutOfBoundsCount++
			}
		}

		names := make([]string, 0, len(labelsOnImage))
		for n := range labelsOnImage {
			names = append(names, n)
		}
		sort.Strings(names)
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				cooccur[[2]string{names[i], names[j]}]++
			}
		}
	}

	sort.Float64s(areas)
	sort.Float64s(ratios)
	report.BBoxQuality.AspectRatios = ratios
	if len(areas) > 0 {
		report.BBoxQuality.AreaMin = areas[0]
		report.BBoxQuality.AreaMax = areas[len(areas)-1]
		report.BBoxQuality.AreaMedian = median(areas)
	}

	report.TopCooccurrence = topCooccurrencePairs(cooccur, topN)
	return report
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func topCooccurrencePairs(cooccur map[[2]string]int, topN int) []CooccurrencePair {
	pairs := make([]CooccurrencePair, 0, len(cooccur))
	for k, v := range cooccur {
		pairs = append(pairs, CooccurrencePair{LabelA: k[0], LabelB: k[1], Count: v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		if pairs[i].LabelA != pairs[j].LabelA {
			return pairs[i].LabelA < pairs[j].LabelA
		}
		return pairs[i].LabelB < pairs[j].LabelB
	})
	if topN > 0 && len(pairs) > topN {
		pairs = pairs[:topN]
	}
	return pairs
}
