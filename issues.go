package panlabel

// Stable lossiness issue codes (§4.4). Treat every one of these as a public API: renames are
// breaking changes (§9).
const (
	// Generic, format-independent rules.
	CodeDropDatasetInfo            = "drop_dataset_info"
	CodeDropLicenses               = "drop_licenses"
	CodeDropImageMetadata          = "drop_image_metadata"
	CodeDropCategorySupercategory  = "drop_category_supercategory"
	CodeDropAnnotationConfidence   = "drop_annotation_confidence"
	CodeDropAnnotationAttributes   = "drop_annotation_attributes"
	CodeDropImagesWithoutAnnotations = "drop_images_without_annotations"

	// COCO-specific.
	CodeCOCODropDatasetInfoName        = "drop_dataset_info_name"
	CodeCOCOAttributesMayNotBePreserved = "coco_attributes_may_not_be_preserved"

	// Label Studio specific.
	CodeLabelStudioRotationDropped = "label_studio_rotation_dropped"

	// HF specific.
	CodeHFMetadataLost   = "hf_metadata_lost"
	CodeHFAttributesLost = "hf_attributes_lost"
	CodeHFConfidenceLost = "hf_confidence_lost"

	// Deterministic adapter policy notes (info-severity, never blocking).
	CodeYOLOWriterFloatPrecision  = "yolo_writer_float_precision"
	CodeVOCReaderCoordinatePolicy = "voc_reader_coordinate_policy"
	CodeTFODImageIDPolicy         = "tfod_image_id_assignment_policy"
	CodeCVATCategoriesInferred    = "cvat_categories_inferred"
	CodeHFBBoxModeInfo            = "hf_bbox_mode"
)
