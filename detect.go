package panlabel

// Auto-detector (§4.6): maps a path to a Format by directory/file shape and a shallow content
// peek. Detection is deliberately shallow; deep schema checks are each reader's job.

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// DetectFormat runs the deterministic rules of §4.6 against path and returns the single
// matching Format, or an error (*AmbiguousDetection, *UnknownFormat) if detection fails.
func DetectFormat(path string) (Format, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FormatUnknown, &IoError{Path: path, Err: err}
	}

	if info.IsDir() {
		return detectDirectory(path)
	}
	return detectFile(path)
}

func detectDirectory(dir string) (Format, error) {
	var candidates []Format

	if hasTxtFilesRecursive(filepath.Join(dir, "labels")) || isLabelsDir(dir) {
		candidates = append(candidates, FormatYOLO)
	}
	if hasXMLFilesRecursive(filepath.Join(dir, "Annotations")) && isDir(filepath.Join(dir, "JPEGImages")) {
		candidates = append(candidates, FormatVOC)
	}
	if isFile(filepath.Join(dir, "annotations.xml")) {
		candidates = append(candidates, FormatCVAT)
	}
	if isFile(filepath.Join(dir, "metadata.jsonl")) || isFile(filepath.Join(dir, "metadata.parquet")) ||
		hasMetadataOneLevelDeep(dir) {
		candidates = append(candidates, FormatHF)
	}

	return resolveCandidates(dir, candidates)
}

func detectFile(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".csv":
		return FormatTFOD, nil
	case ".xml":
		if rootElementIs(path, "annotations") {
			return FormatCVAT, nil
		}
		return FormatUnknown, &UnknownFormat{Path: path,
			Remediation: "XML root element is not <annotations>; pass --from explicitly"}
	case ".json":
		return detectJSONFile(path)
	}

	return FormatUnknown, &UnknownFormat{Path: path,
		Remediation: "unrecognized file extension; pass --from explicitly"}
}

func detectJSONFile(path string) (Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FormatUnknown, &IoError{Path: path, Err: err}
	}

	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return FormatUnknown, &ParseError{Path: path, Err: err}
	}

	switch v := probe.(type) {
	case []any:
		if len(v) == 0 {
			return FormatLabelStudio, nil // empty array is a valid empty Label Studio dataset
		}
		if first, ok := v[0].(map[string]any); ok {
			if data, ok := first["data"].(map[string]any); ok {
				if _, ok := data["image"].(string); ok {
					return FormatLabelStudio, nil
				}
			}
		}
		return FormatUnknown, &UnknownFormat{Path: path,
			Remediation: "JSON array does not look like Label Studio tasks; pass --from explicitly"}

	case map[string]any:
		if anns, ok := v["annotations"].([]any); ok && len(anns) > 0 {
			first, ok := anns[0].(map[string]any)
			if !ok {
				break
			}
			switch bbox := first["bbox"].(type) {
			case []any:
				return FormatCOCO, nil
			case map[string]any:
				if _, hasMin := bbox["min"]; hasMin {
					return FormatIRJSON, nil
				}
				if _, hasXmin := bbox["xmin"]; hasXmin {
					return FormatIRJSON, nil
				}
			}
		}
	}

	return FormatUnknown, &UnknownFormat{Path: path,
		Remediation: "JSON object does not match a known dataset shape; pass --from explicitly"}
}

func resolveCandidates(path string, candidates []Format) (Format, error) {
	switch len(candidates) {
	case 0:
		return FormatUnknown, &UnknownFormat{Path: path,
			Remediation: "no recognizable directory layout found; pass --from explicitly"}
	case 1:
		return candidates[0], nil
	default:
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.String()
		}
		return FormatUnknown, &AmbiguousDetection{Path: path, Candidates: names}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isLabelsDir(dir string) bool {
	return filepath.Base(filepath.Clean(dir)) == "labels" && hasTxtFilesRecursive(dir)
}

func hasTxtFilesRecursive(dir string) bool {
	return hasFilesWithExtRecursive(dir, ".txt")
}

func hasXMLFilesRecursive(dir string) bool {
	return hasFilesWithExtRecursive(dir, ".xml")
}

func hasFilesWithExtRecursive(dir, ext string) bool {
	if !isDir(dir) {
		return false
	}
	found := false
	_ = filepath.Walk(dir, func(p string, fi os.FileInfo, err error) error {
		if err != nil || found {
			return nil
		}
		if !fi.IsDir() && strings.EqualFold(filepath.Ext(p), ext) {
			found = true
		}
		return nil
	})
	return found
}

func hasMetadataOneLevelDeep(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		if isFile(filepath.Join(sub, "metadata.jsonl")) || isFile(filepath.Join(sub, "metadata.parquet")) {
			return true
		}
	}
	return false
}

// rootElementIs does a shallow peek at an XML file's root element name without fully parsing
// the document.
func rootElementIs(path, name string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 4096)
	n, _ := f.Read(buf)
	text := string(buf[:n])

	idx := strings.IndexByte(text, '<')
	for idx >= 0 {
		rest := text[idx+1:]
		if strings.HasPrefix(rest, "?") || strings.HasPrefix(rest, "!") {
			next := strings.IndexByte(rest, '<')
			if next < 0 {
				break
			}
			idx += 1 + next
			continue
		}
		end := strings.IndexAny(rest, " \t\n\r/>")
		if end < 0 {
			return false
		}
		return rest[:end] == name
	}
	return false
}
