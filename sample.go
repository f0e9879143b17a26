package panlabel

// Sampler (§4.7): produces a sub-dataset preserving original IDs and keeping all categories.
// Directly generalizes the teacher's AnnotatedFiles.Split (ir.go) from a fixed cumulative
// percentage split into n/fraction targets, a category filter, and a deterministic seed in
// place of the teacher's time.Now()-seeded math/rand source (determinism here is load-bearing,
// per spec.md §9, where the teacher's CLI had no such requirement).

import (
	"math/rand"
	"sort"
)

// SampleStrategy selects how Sample picks which images to keep.
type SampleStrategy int

const (
	// StrategyRandom draws uniformly at random across all eligible images.
	StrategyRandom SampleStrategy = iota
	// StrategyStratified aims for proportional per-category representation.
	StrategyStratified
)

// CategoryMode selects what a category filter applies to.
type CategoryMode int

const (
	// CategoryModeImages keeps any image that has at least one annotation in the filtered
	// category set.
	CategoryModeImages CategoryMode = iota
	// CategoryModeAnnotations keeps every image, but drops annotations outside the filtered
	// category set.
	CategoryModeAnnotations
)

// SampleOptions configures Sample.
type SampleOptions struct {
	N            int     // target count; 0 means use Fraction
	Fraction     float64 // target fraction in (0,1]; used when N == 0
	Seed         int64
	Strategy     SampleStrategy
	Categories   []string // category names to filter on; empty means no filter
	CategoryMode CategoryMode
}

// Sample draws a deterministic sub-dataset from d per opts, preserving original IDs and
// keeping every Category (even ones with zero sampled annotations, per §4.7 "keeping all
// categories").
func Sample(d *Dataset, opts SampleOptions) *Dataset {
	rng := rand.New(rand.NewSource(opts.Seed))

	filtered := applyCategoryFilter(d, opts.Categories, opts.CategoryMode)

	images := filtered.ImagesInOrder()
	target := opts.N
	if target == 0 {
		target = int(opts.Fraction*float64(len(images)) + 0.5)
	}
	if target > len(images) {
		target = len(images)
	}

	var chosen []ImageID
	switch opts.Strategy {
	case StrategyStratified:
		chosen = stratifiedSample(filtered, images, target, rng)
	default:
		chosen = randomSample(images, target, rng)
	}

	chosenSet := make(map[ImageID]bool, len(chosen))
	for _, id := range chosen {
		chosenSet[id] = true
	}

	out := NewDataset()
	out.Info = filtered.Info
	out.Licenses = filtered.Licenses
	for _, cat := range filtered.CategoriesInOrder() {
		out.AddCategory(cat)
	}
	for _, img := range images {
		if chosenSet[img.ID] {
			out.AddImage(img)
		}
	}
	for _, ann := range filtered.AnnotationsInOrder() {
		if chosenSet[ann.ImageID] {
			out.AddAnnotation(ann)
		}
	}
	return out
}

// applyCategoryFilter returns a Dataset filtered per mode. With CategoryModeAnnotations it
// drops non-matching annotations but keeps every image; with CategoryModeImages it keeps every
// annotation but the image selection downstream is later restricted by Sample to images that
// still have a matching annotation.
func applyCategoryFilter(d *Dataset, categories []string, mode CategoryMode) *Dataset {
	if len(categories) == 0 {
		return d
	}
	wanted := make(map[string]bool, len(categories))
	for _, c := range categories {
		wanted[c] = true
	}

	out := NewDataset()
	out.Info = d.Info
	out.Licenses = d.Licenses
	for _, cat := range d.CategoriesInOrder() {
		out.AddCategory(cat)
	}

	keepImage := make(map[ImageID]bool)
	for _, ann := range d.AnnotationsInOrder() {
		cat := d.Categories[ann.CategoryID]
		matches := wanted[cat.Name]

		switch mode {
		case CategoryModeAnnotations:
			if matches {
				out.AddAnnotation(ann)
				keepImage[ann.ImageID] = true
			}
		default: // CategoryModeImages
			if matches {
				keepImage[ann.ImageID] = true
			}
			out.AddAnnotation(ann)
		}
	}

	for _, img := range d.ImagesInOrder() {
		if mode == CategoryModeImages {
			if keepImage[img.ID] {
				out.AddImage(img)
			}
			continue
		}
		// CategoryModeAnnotations keeps every image; an image with no matching annotations
		// simply ends up with zero annotations in the output, same as any other empty image.
		out.AddImage(img)
	}
	if mode == CategoryModeImages {
		filteredAnnotations := make(map[AnnotationID]Annotation)
		for id, ann := range out.Annotations {
			if _, ok := out.Images[ann.ImageID]; ok {
				filteredAnnotations[id] = ann
			}
		}
		out.Annotations = filteredAnnotations
	}

	return out
}

func randomSample(images []Image, target int, rng *rand.Rand) []ImageID {
	idx := rng.Perm(len(images))
	if target > len(idx) {
		target = len(idx)
	}
	chosen := make([]ImageID, 0, target)
	for _, i := range idx[:target] {
		chosen = append(chosen, images[i].ID)
	}
	sort.Slice(chosen, func(i, j int) bool { return chosen[i] < chosen[j] })
	return chosen
}

// stratifiedSample aims for proportional per-category representation, breaking ties by image
// ID ascending (§4.7).
func stratifiedSample(d *Dataset, images []Image, target int, rng *rand.Rand) []ImageID {
	imagesByCategory := make(map[CategoryID][]ImageID)
	noCategory := make([]ImageID, 0)
	for _, img := range images {
		anns := d.AnnotationsForImage(img.ID)
		if len(anns) == 0 {
			noCategory = append(noCategory, img.ID)
			continue
		}
		seen := make(map[CategoryID]bool)
		for _, a := range anns {
			if !seen[a.CategoryID] {
				seen[a.CategoryID] = true
				imagesByCategory[a.CategoryID] = append(imagesByCategory[a.CategoryID], img.ID)
			}
		}
	}

	categoryIDs := make([]CategoryID, 0, len(imagesByCategory))
	for id := range imagesByCategory {
		categoryIDs = append(categoryIDs, id)
	}
	sort.Slice(categoryIDs, func(i, j int) bool { return categoryIDs[i] < categoryIDs[j] })

	total := len(images)
	chosenSet := make(map[ImageID]bool)
	var chosen []ImageID

	addUpTo := func(pool []ImageID, want int) {
		sort.Slice(pool, func(i, j int) bool { return pool[i] < pool[j] })
		perm := rng.Perm(len(pool))
		added := 0
		for _, i := range perm {
			if added >= want {
				break
			}
			id := pool[i]
			if chosenSet[id] {
				continue
			}
			chosenSet[id] = true
			chosen = append(chosen, id)
			added++
		}
	}

	for _, catID := range categoryIDs {
		pool := imagesByCategory[catID]
		var want int
		if total > 0 {
			want = int(float64(len(pool))/float64(total)*float64(target) + 0.5)
		}
		addUpTo(pool, want)
	}

	if len(chosen) < target {
		remaining := make([]ImageID, 0, len(images))
		for _, img := range images {
			if !chosenSet[img.ID] {
				remaining = append(remaining, img.ID)
			}
		}
		addUpTo(remaining, target-len(chosen))
	}

	sort.Slice(chosen, func(i, j int) bool { return chosen[i] < chosen[j] })
	if len(chosen) > target {
		chosen = chosen[:target]
	}
	return chosen
}
