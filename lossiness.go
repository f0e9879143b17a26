package panlabel

// Lossiness analyzer (§4.4): given a source format, a destination format and the already-read
// IR, produce the ConversionReport the orchestrator gates --allow-lossy on.

// Counts summarizes a Dataset's size for the conversion report.
type Counts struct {
	Images      int `json:"images"`
	Categories  int `json:"categories"`
	Annotations int `json:"annotations"`
}

func countsOf(d *Dataset) Counts {
	return Counts{Images: len(d.Images), Categories: len(d.Categories), Annotations: len(d.Annotations)}
}

// ConversionIssue is a single lossiness finding.
type ConversionIssue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// ConversionReport is the stable-schema report described in §6.
type ConversionReport struct {
	From   Format            `json:"from"`
	To     Format            `json:"to"`
	Input  Counts            `json:"input"`
	Output Counts            `json:"output"`
	Issues []ConversionIssue `json:"issues"`
}

// Warnings returns the warning-severity issues, i.e. the ones that block conversion without
// --allow-lossy.
func (r ConversionReport) Warnings() []ConversionIssue {
	var out []ConversionIssue
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning {
			out = append(out, i)
		}
	}
	return out
}

// IsLossy reports whether r contains at least one warning-severity issue (GLOSSARY).
func (r ConversionReport) IsLossy() bool { return len(r.Warnings()) > 0 }

// Analyze computes the ConversionReport for converting d from src to dst. It must run after
// the reader and before the writer, per the orchestrator steps in §4.5.
func Analyze(src, dst Format, d *Dataset) ConversionReport {
	report := ConversionReport{From: src, To: dst, Input: countsOf(d)}
	dstCaps := CapabilitiesFor(dst)

	add := func(sev Severity, code, msg string) {
		report.Issues = append(report.Issues, ConversionIssue{Severity: sev, Code: code, Message: msg})
	}

	if !dstCaps.DatasetInfo {
		add(SeverityWarning, CodeDropDatasetInfo, "destination format does not store dataset info; it will be dropped")
	}
	if !dstCaps.Licenses && len(d.Licenses) > 0 {
		add(SeverityWarning, CodeDropLicenses, "destination format does not store licenses; they will be dropped")
	}
	if !dstCaps.ImageLicenseDate {
		for _, img := range d.ImagesInOrder() {
			if img.LicenseID != nil || img.DateCaptured != "" {
				add(SeverityWarning, CodeDropImageMetadata,
					"destination format does not store per-image license/date metadata; it will be dropped")
				break
			}
		}
	}
	if !dstCaps.CategorySupercategory {
		for _, cat := range d.CategoriesInOrder() {
			if cat.Supercategory != "" {
				add(SeverityWarning, CodeDropCategorySupercategory,
					"destination format does not store category supercategory; it will be dropped")
				break
			}
		}
	}
	if !dstCaps.Confidence {
		for _, ann := range d.AnnotationsInOrder() {
			if ann.Confidence != nil {
				add(SeverityWarning, CodeDropAnnotationConfidence,
					"destination format does not store annotation confidence; it will be dropped")
				break
			}
		}
	}
	if !dstCaps.Attributes {
		for _, ann := range d.AnnotationsInOrder() {
			if len(ann.Attributes) > 0 {
				add(SeverityWarning, CodeDropAnnotationAttributes,
					"destination format does not store annotation attributes; they will be dropped")
				break
			}
		}
	}
	if !dstCaps.ImagesWithoutAnnotations {
		for _, img := range d.ImagesInOrder() {
			if len(d.AnnotationsForImage(img.ID)) == 0 {
				add(SeverityWarning, CodeDropImagesWithoutAnnotations,
					"destination format cannot represent images with zero annotations; they will be dropped")
				break
			}
		}
	}

	// Format-specific rules layered on top of the generic capability-driven ones. This one only
	// applies when the destination keeps dataset info at all but not under a dedicated name
	// field (dstCaps.DatasetInfo && !dstCaps.DatasetInfoName); formats that drop info entirely
	// already get CodeDropDatasetInfo above and don't need a second, more specific warning.
	if dstCaps.DatasetInfo && !dstCaps.DatasetInfoName && d.Info != nil && d.Info.Name != "" {
		add(SeverityWarning, CodeCOCODropDatasetInfoName,
			"destination format has no dedicated dataset name field; the name will be folded into info or dropped")
	}
	if dst == FormatCOCO {
		for _, ann := range d.AnnotationsInOrder() {
			if len(ann.Attributes) > 0 {
				add(SeverityInfo, CodeCOCOAttributesMayNotBePreserved,
					"COCO has no canonical annotation attribute bag; the COCO writer does not write"+
						" annotation attributes")
				break
			}
		}
	}

	if src == FormatLabelStudio {
		for _, ann := range d.AnnotationsInOrder() {
			if deg, ok := ann.Attributes["ls_rotation_deg"]; ok && deg != "" && deg != "0" {
				add(SeverityWarning, CodeLabelStudioRotationDropped,
					"source Label Studio boxes carry a non-zero rotation; each box keeps its unrotated"+
						" x/y/width/height (not the rotated envelope) and the angle is carried only as the"+
						" ls_rotation_deg attribute")
				break
			}
		}
	}

	if dst == FormatHF {
		if d.Info != nil {
			add(SeverityWarning, CodeHFMetadataLost, "HF ImageFolder metadata.jsonl has no dataset-info slot")
		}
		for _, ann := range d.AnnotationsInOrder() {
			if len(ann.Attributes) > 0 {
				add(SeverityWarning, CodeHFAttributesLost, "HF ImageFolder rows do not carry free-form attributes")
				break
			}
		}
		for _, ann := range d.AnnotationsInOrder() {
			if ann.Confidence != nil {
				add(SeverityWarning, CodeHFConfidenceLost, "HF ImageFolder rows do not carry a confidence score")
				break
			}
		}
	}

	// Deterministic, always-informational adapter policy notes.
	switch dst {
	case FormatYOLO:
		add(SeverityInfo, CodeYOLOWriterFloatPrecision, "YOLO labels are written with 6 decimal digits of precision")
	}
	switch src {
	case FormatVOC:
		add(SeverityInfo, CodeVOCReaderCoordinatePolicy,
			"VOC xmin/ymin/xmax/ymax are passed through verbatim with no 0/1-based coordinate adjustment")
	case FormatTFOD:
		add(SeverityInfo, CodeTFODImageIDPolicy,
			"TFOD image/category/annotation IDs were assigned deterministically by filename/class/row order")
	case FormatCVAT:
		for _, cat := range d.CategoriesInOrder() {
			if cat.Attributes["cvat_inferred"] == "1" {
				add(SeverityInfo, CodeCVATCategoriesInferred,
					"source CVAT document had no <meta><task><labels>; categories were inferred from box labels")
				break
			}
		}
	case FormatHF:
		add(SeverityInfo, CodeHFBBoxModeInfo,
			"HF ImageFolder bbox arrays were interpreted using the configured bbox mode (default xywh)")
	}

	report.Output = outputCounts(d, dstCaps)
	return report
}

// outputCounts projects the counts the writer would actually emit for dst, given its
// Capabilities. Only the image count is affected by current rules: formats that cannot
// represent an image with zero annotations (TFOD) drop it entirely.
func outputCounts(d *Dataset, dstCaps Capabilities) Counts {
	out := countsOf(d)
	if !dstCaps.ImagesWithoutAnnotations {
		withAnnotations := 0
		for _, img := range d.ImagesInOrder() {
			if len(d.AnnotationsForImage(img.ID)) > 0 {
				withAnnotations++
			}
		}
		out.Images = withAnnotations
	}
	return out
}
