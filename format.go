package panlabel

// Format identifies one of the supported on-disk dataset formats, plus the adapter registry
// and capability declarations the lossiness analyzer reads from. Adapters live in
// sub-packages (format/coco, format/yolo, ...) and register themselves here via side-effect
// import, the same pattern stdlib uses for image.RegisterFormat / image/jpeg, image/png.

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Format is one of the formats named in §6.
type Format int

const (
	FormatUnknown Format = iota
	FormatIRJSON
	FormatCOCO
	FormatTFOD
	FormatYOLO
	FormatVOC
	FormatLabelStudio
	FormatCVAT
	FormatHF
)

var formatNames = map[Format]string{
	FormatIRJSON:      "ir-json",
	FormatCOCO:        "coco",
	FormatTFOD:        "tfod",
	FormatYOLO:        "yolo",
	FormatVOC:         "voc",
	FormatLabelStudio: "label-studio",
	FormatCVAT:        "cvat",
	FormatHF:          "hf",
}

// String returns the canonical token for f.
func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return "unknown"
}

// MarshalText renders f as its canonical token for encoders that use encoding.TextMarshaler
// (for example encoding/json when a Format is a map key).
func (f Format) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// MarshalJSON renders f as its canonical token string (e.g. "coco") rather than the bare
// underlying int — encoding/json does not consult fmt.Stringer on its own.
func (f Format) MarshalJSON() ([]byte, error) { return json.Marshal(f.String()) }

// formatAliases maps every accepted CLI token (§6) to its canonical Format.
var formatAliases = map[string]Format{
	"ir-json": FormatIRJSON,

	"coco":      FormatCOCO,
	"coco-json": FormatCOCO,

	"tfod":     FormatTFOD,
	"tfod-csv": FormatTFOD,

	"yolo":       FormatYOLO,
	"ultralytics": FormatYOLO,
	"yolov8":     FormatYOLO,
	"yolov5":     FormatYOLO,

	"voc":        FormatVOC,
	"pascal-voc": FormatVOC,
	"voc-xml":    FormatVOC,

	"label-studio":      FormatLabelStudio,
	"label-studio-json": FormatLabelStudio,
	"ls":                FormatLabelStudio,

	"cvat":     FormatCVAT,
	"cvat-xml": FormatCVAT,

	"hf":              FormatHF,
	"hf-imagefolder":  FormatHF,
	"huggingface":     FormatHF,
}

// ParseFormatToken parses one of the format tokens accepted everywhere in §6. "auto" is not
// accepted here: the CLI maps it to FormatUnknown, which Convert then auto-detects.
func ParseFormatToken(token string) (Format, error) {
	f, ok := formatAliases[strings.ToLower(strings.TrimSpace(token))]
	if !ok {
		return FormatUnknown, fmt.Errorf("panlabel: unknown format token %q", token)
	}
	return f, nil
}

// Reader constructs a Dataset from a source path. Implementations must be deterministic:
// re-running a reader on identical input must produce a byte-identical IR (§4.3).
type Reader interface {
	Read(path string) (*Dataset, error)
}

// Writer consumes a borrowed Dataset and emits bytes to path. Implementations must not mutate
// the Dataset, and must be deterministic (§4.3).
type Writer interface {
	Write(path string, d *Dataset) error
}

// Capabilities declares, per format, which IR fields the on-disk representation can express.
// The lossiness analyzer (§4.4) reads these to emit the generic drop_* rules instead of
// special-casing every writer.
type Capabilities struct {
	DatasetInfo          bool
	DatasetInfoName      bool // COCO keeps info but not a free-form name in the same shape
	Licenses             bool
	ImageLicenseDate     bool
	CategorySupercategory bool
	Confidence           bool
	Attributes           bool
	ImagesWithoutAnnotations bool // false for TFOD: an image with 0 annotations cannot round-trip
}

var capabilities = map[Format]Capabilities{
	FormatIRJSON: {
		DatasetInfo: true, DatasetInfoName: true, Licenses: true, ImageLicenseDate: true,
		CategorySupercategory: true, Confidence: true, Attributes: true, ImagesWithoutAnnotations: true,
	},
	FormatCOCO: {
		DatasetInfo: true, DatasetInfoName: false, Licenses: true, ImageLicenseDate: true,
		CategorySupercategory: true, Confidence: true, Attributes: false, ImagesWithoutAnnotations: true,
	},
	FormatTFOD: {
		DatasetInfo: false, Licenses: false, ImageLicenseDate: false,
		CategorySupercategory: false, Confidence: false, Attributes: false, ImagesWithoutAnnotations: false,
	},
	FormatYOLO: {
		DatasetInfo: false, Licenses: false, ImageLicenseDate: false,
		CategorySupercategory: false, Confidence: false, Attributes: false, ImagesWithoutAnnotations: true,
	},
	FormatVOC: {
		DatasetInfo: false, Licenses: false, ImageLicenseDate: false,
		CategorySupercategory: false, Confidence: false, Attributes: true, ImagesWithoutAnnotations: true,
	},
	FormatLabelStudio: {
		DatasetInfo: false, Licenses: false, ImageLicenseDate: false,
		CategorySupercategory: false, Confidence: true, Attributes: true, ImagesWithoutAnnotations: true,
	},
	FormatCVAT: {
		DatasetInfo: false, Licenses: false, ImageLicenseDate: false,
		CategorySupercategory: false, Confidence: false, Attributes: true, ImagesWithoutAnnotations: true,
	},
	FormatHF: {
		DatasetInfo: false, Licenses: false, ImageLicenseDate: false,
		CategorySupercategory: false, Confidence: false, Attributes: false, ImagesWithoutAnnotations: true,
	},
}

// CapabilitiesFor returns the declared Capabilities of f.
func CapabilitiesFor(f Format) Capabilities { return capabilities[f] }

var (
	readers = map[Format]Reader{}
	writers = map[Format]Writer{}
)

// RegisterReader registers r as the Reader for f. Adapter packages call this from init().
func RegisterReader(f Format, r Reader) { readers[f] = r }

// RegisterWriter registers w as the Writer for f. Adapter packages call this from init().
func RegisterWriter(f Format, w Writer) { writers[f] = w }

// ReaderFor returns the registered Reader for f, or an error if no adapter package providing
// it has been imported.
func ReaderFor(f Format) (Reader, error) {
	r, ok := readers[f]
	if !ok {
		return nil, fmt.Errorf("panlabel: no reader registered for format %q"+
			" (import its format/* package for side effects)", f)
	}
	return r, nil
}

// WriterFor returns the registered Writer for f, or an error if no adapter package providing
// it has been imported.
func WriterFor(f Format) (Writer, error) {
	w, ok := writers[f]
	if !ok {
		return nil, fmt.Errorf("panlabel: no writer registered for format %q"+
			" (import its format/* package for side effects)", f)
	}
	return w, nil
}

// FormatInfo describes one supported format for the list-formats command (§6).
type FormatInfo struct {
	Format   Format `json:"format"`
	CanRead  bool   `json:"can_read"`
	CanWrite bool   `json:"can_write"`
}

// ListFormats returns every known format along with whether a reader/writer is currently
// registered for it, in a fixed order: ir-json, coco, tfod, yolo, voc, label-studio, cvat, hf.
func ListFormats() []FormatInfo {
	all := []Format{FormatIRJSON, FormatCOCO, FormatTFOD, FormatYOLO, FormatVOC,
		FormatLabelStudio, FormatCVAT, FormatHF}
	out := make([]FormatInfo, 0, len(all))
	for _, f := range all {
		_, canRead := readers[f]
		_, canWrite := writers[f]
		out = append(out, FormatInfo{Format: f, CanRead: canRead, CanWrite: canWrite})
	}
	return out
}
