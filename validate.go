package panlabel

// Validator: structural invariant checks over the IR, independent of any source/destination
// format (§4.2).

import (
	"fmt"
	"sort"
)

// Severity of a validation or conversion issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Stable validation issue codes (§4.2).
const (
	CodeDuplicateImageID        = "duplicate_image_id"
	CodeDuplicateCategoryID     = "duplicate_category_id"
	CodeDuplicateAnnotationID   = "duplicate_annotation_id"
	CodeAnnotationMissingImage  = "annotation_missing_image"
	CodeAnnotationMissingCat    = "annotation_missing_category"
	CodeBBoxDegenerate          = "bbox_degenerate"
	CodeBBoxOutOfBounds         = "bbox_out_of_bounds"
	CodeImageZeroDimension      = "image_zero_dimension"
	CodeDuplicateFileName       = "duplicate_file_name"
)

// ValidationIssue is a single structural finding.
type ValidationIssue struct {
	Severity Severity          `json:"severity"`
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Context  map[string]string `json:"context,omitempty"`
}

// ValidationReport is the ordered list of findings produced by Validate.
type ValidationReport struct {
	Issues []ValidationIssue `json:"issues"`
}

// ErrorCount returns the number of SeverityError issues.
func (r ValidationReport) ErrorCount() int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			n++
		}
	}
	return n
}

// HasErrors reports whether the report contains at least one error-severity issue.
func (r ValidationReport) HasErrors() bool { return r.ErrorCount() > 0 }

// DefaultBoundsTolerance is the default pixel tolerance ε applied to bbox_out_of_bounds (§4.2).
const DefaultBoundsTolerance = 0.5

// Validate runs every structural invariant check in §4.2 against d and returns the ordered
// findings. tolerance is the ε used for bbox_out_of_bounds; pass DefaultBoundsTolerance for the
// spec default.
func Validate(d *Dataset, tolerance float64) ValidationReport {
	var report ValidationReport
	add := func(sev Severity, code, msg string, ctx map[string]string) {
		report.Issues = append(report.Issues, ValidationIssue{Severity: sev, Code: code, Message: msg, Context: ctx})
	}

	for _, id := range d.duplicateImageIDs {
		add(SeverityError, CodeDuplicateImageID, fmt.Sprintf("duplicate image id %s", id),
			map[string]string{"image_id": id.String()})
	}
	for _, id := range d.duplicateCategoryIDs {
		add(SeverityError, CodeDuplicateCategoryID, fmt.Sprintf("duplicate category id %s", id),
			map[string]string{"category_id": id.String()})
	}
	for _, id := range d.duplicateAnnotationIDs {
		add(SeverityError, CodeDuplicateAnnotationID, fmt.Sprintf("duplicate annotation id %s", id),
			map[string]string{"annotation_id": id.String()})
	}

	seenFileNames := make(map[string][]ImageID)
	for _, img := range d.ImagesInOrder() {
		if img.Width == 0 || img.Height == 0 {
			add(SeverityError, CodeImageZeroDimension,
				fmt.Sprintf("image %s has zero width or height (%dx%d)", img.ID, img.Width, img.Height),
				map[string]string{"image_id": img.ID.String()})
		}
		seenFileNames[img.FileName] = append(seenFileNames[img.FileName], img.ID)
	}

	var dupNames []string
	for name, ids := range seenFileNames {
		if len(ids) > 1 {
			dupNames = append(dupNames, name)
		}
	}
	sort.Strings(dupNames)
	for _, name := range dupNames {
		add(SeverityWarning, CodeDuplicateFileName,
			fmt.Sprintf("file name %q is used by %d images", name, len(seenFileNames[name])),
			map[string]string{"file_name": name})
	}

	for _, ann := range d.AnnotationsInOrder() {
		if _, ok := d.Images[ann.ImageID]; !ok {
			add(SeverityError, CodeAnnotationMissingImage,
				fmt.Sprintf("annotation %s references missing image %s", ann.ID, ann.ImageID),
				map[string]string{"annotation_id": ann.ID.String(), "image_id": ann.ImageID.String()})
		}
		if _, ok := d.Categories[ann.CategoryID]; !ok {
			add(SeverityError, CodeAnnotationMissingCat,
				fmt.Sprintf("annotation %s references missing category %s", ann.ID, ann.CategoryID),
				map[string]string{"annotation_id": ann.ID.String(), "category_id": ann.CategoryID.String()})
		}

		if ann.BBox.Max.X <= ann.BBox.Min.X || ann.BBox.Max.Y <= ann.BBox.Min.Y {
			add(SeverityError, CodeBBoxDegenerate,
				fmt.Sprintf("annotation %s has a degenerate bbox", ann.ID),
				map[string]string{"annotation_id": ann.ID.String()})
			continue
		}

		if img, ok := d.Images[ann.ImageID]; ok {
			if ann.BBox.Min.X < -tolerance || ann.BBox.Min.Y < -tolerance ||
				ann.BBox.Max.X > float64(img.Width)+tolerance || ann.BBox.Max.Y > float64(img.Height)+tolerance {
				add(SeverityWarning, CodeBBoxOutOfBounds,
					fmt.Sprintf("annotation %s bbox exceeds image %s bounds", ann.ID, img.ID),
					map[string]string{"annotation_id": ann.ID.String(), "image_id": img.ID.String()})
			}
		}
	}

	return report
}

// PromoteWarnings returns a copy of r with every warning-severity issue promoted to error,
// implementing --strict (§4.2, §4.5).
func (r ValidationReport) PromoteWarnings() ValidationReport {
	out := ValidationReport{Issues: make([]ValidationIssue, len(r.Issues))}
	for i, issue := range r.Issues {
		if issue.Severity == SeverityWarning {
			issue.Severity = SeverityError
		}
		out.Issues[i] = issue
	}
	return out
}
