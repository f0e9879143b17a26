package panlabel

// The canonical Intermediate Representation (IR). Every adapter normalizes its source format
// into a Dataset, and every cross-format conversion flows through one. Modeled on the
// teacher's Annotation/AnnotatedFile pair (ir.go), generalized from a flat per-file annotation
// list to the full dataset/image/category/annotation graph spec.md §3 requires.

import "sort"

// Reserved attribute-key namespaces. Lossiness rules (§4.4) are written against these
// prefixes; adapters must place any non-canonical source field behind one of them.
const (
	NamespaceLabelStudio = "ls_"
	NamespaceCVAT        = "cvat_"
	NamespaceHF          = "hf_"
)

// Well-known attribute keys used by more than one adapter.
const (
	AttrOccluded  = "occluded"
	AttrTruncated = "truncated"
	AttrDifficult = "difficult"
	AttrPose      = "pose"
)

// Info is free-form dataset-level metadata.
type Info struct {
	Name        string
	Description string
	Year        int
	Attributes  map[string]string
}

// License describes a dataset license.
type License struct {
	ID   int64
	Name string
	URL  string
}

// Image is a single annotated image. FileName is relative and forward-slash normalized.
type Image struct {
	ID           ImageID
	FileName     string
	Width        uint32
	Height       uint32
	LicenseID    *int64
	DateCaptured string
	Attributes   map[string]string
}

// Size returns the Image's dimensions as an ImageSize for bbox conversion.
func (img Image) Size() ImageSize {
	return ImageSize{Width: img.Width, Height: img.Height}
}

// Category is a single label class.
type Category struct {
	ID            CategoryID
	Name          string
	Supercategory string
	Attributes    map[string]string
}

// Annotation is a single labeled bounding box, referencing its Image and Category by ID (not
// by pointer) so that ownership always resolves through the Dataset's maps.
type Annotation struct {
	ID         AnnotationID
	ImageID    ImageID
	CategoryID CategoryID
	BBox       PixelBBox
	Confidence *float64 // nil when absent; otherwise in [0,1]
	Attributes map[string]string
}

// Dataset is the root IR container. It exclusively owns all Images, Categories, Annotations
// and Licenses; Annotations only ever hold ID references into the Images/Categories maps.
type Dataset struct {
	Info        *Info
	Licenses    []License
	Images      map[ImageID]Image
	Categories  map[CategoryID]Category
	Annotations map[AnnotationID]Annotation

	// imageOrder/categoryOrder/annotationOrder preserve insertion order for deterministic
	// output, since Go map iteration order is randomized and spec.md §3/§9 require stable
	// serialization.
	imageOrder      []ImageID
	categoryOrder   []CategoryID
	annotationOrder []AnnotationID

	// duplicateImageIDs/duplicateCategoryIDs/duplicateAnnotationIDs record IDs that were
	// inserted more than once. The maps above silently overwrite on a repeated ID, so this is
	// the only point where the collision is observable; Validate reports from here.
	duplicateImageIDs      []ImageID
	duplicateCategoryIDs   []CategoryID
	duplicateAnnotationIDs []AnnotationID
}

// NewDataset returns an empty, ready-to-use Dataset.
func NewDataset() *Dataset {
	return &Dataset{
		Images:      make(map[ImageID]Image),
		Categories:  make(map[CategoryID]Category),
		Annotations: make(map[AnnotationID]Annotation),
	}
}

// AddImage inserts img, recording insertion order. It overwrites any previous Image with the
// same ID without altering that ID's position in the order, and records the collision for
// Validate's duplicate_image_id check.
func (d *Dataset) AddImage(img Image) {
	if _, exists := d.Images[img.ID]; !exists {
		d.imageOrder = append(d.imageOrder, img.ID)
	} else {
		d.duplicateImageIDs = append(d.duplicateImageIDs, img.ID)
	}
	d.Images[img.ID] = img
}

// AddCategory inserts cat, recording insertion order.
func (d *Dataset) AddCategory(cat Category) {
	if _, exists := d.Categories[cat.ID]; !exists {
		d.categoryOrder = append(d.categoryOrder, cat.ID)
	} else {
		d.duplicateCategoryIDs = append(d.duplicateCategoryIDs, cat.ID)
	}
	d.Categories[cat.ID] = cat
}

// AddAnnotation inserts ann, recording insertion order.
func (d *Dataset) AddAnnotation(ann Annotation) {
	if _, exists := d.Annotations[ann.ID]; !exists {
		d.annotationOrder = append(d.annotationOrder, ann.ID)
	} else {
		d.duplicateAnnotationIDs = append(d.duplicateAnnotationIDs, ann.ID)
	}
	d.Annotations[ann.ID] = ann
}

// ImagesInOrder returns all Images in insertion order.
func (d *Dataset) ImagesInOrder() []Image {
	out := make([]Image, 0, len(d.imageOrder))
	for _, id := range d.imageOrder {
		out = append(out, d.Images[id])
	}
	return out
}

// CategoriesInOrder returns all Categories in insertion order.
func (d *Dataset) CategoriesInOrder() []Category {
	out := make([]Category, 0, len(d.categoryOrder))
	for _, id := range d.categoryOrder {
		out = append(out, d.Categories[id])
	}
	return out
}

// AnnotationsInOrder returns all Annotations in insertion order.
func (d *Dataset) AnnotationsInOrder() []Annotation {
	out := make([]Annotation, 0, len(d.annotationOrder))
	for _, id := range d.annotationOrder {
		out = append(out, d.Annotations[id])
	}
	return out
}

// ImagesByIDAscending returns all Images sorted by numeric ID ascending, the deterministic
// order formats like COCO write in (§4.3.1).
func (d *Dataset) ImagesByIDAscending() []Image {
	out := d.ImagesInOrder()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CategoriesByIDAscending returns all Categories sorted by numeric ID ascending.
func (d *Dataset) CategoriesByIDAscending() []Category {
	out := d.CategoriesInOrder()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AnnotationsByIDAscending returns all Annotations sorted by numeric ID ascending.
func (d *Dataset) AnnotationsByIDAscending() []Annotation {
	out := d.AnnotationsInOrder()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AnnotationsForImage returns the Annotations referencing imageID, in insertion order.
func (d *Dataset) AnnotationsForImage(imageID ImageID) []Annotation {
	out := make([]Annotation, 0)
	for _, id := range d.annotationOrder {
		if a := d.Annotations[id]; a.ImageID == imageID {
			out = append(out, a)
		}
	}
	return out
}

// SortedAttributeKeys returns the keys of attrs sorted lexicographically. Attribute bags are
// unordered maps; any deterministic serialization must sort by key (§4.1).
func SortedAttributeKeys(attrs map[string]string) []string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
