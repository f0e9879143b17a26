// Package imageprobe reads an image's pixel dimensions from its header without decoding the
// full image, the way the teacher's image_utils.go decodeImageConfig does via image.DecodeConfig.
// Used by the YOLO adapter (which must recover width/height from the image files referenced by
// a label directory, since YOLO label lines carry no dimensions of their own) and by the HF
// ImageFolder adapter (whose metadata rows likewise carry no dimensions).
package imageprobe

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
)

// Extensions lists the probe order for an image with an unknown extension, matching the
// teacher's own preference order for photographic datasets: jpg, png, jpeg, bmp, webp.
var Extensions = []string{".jpg", ".png", ".jpeg", ".bmp", ".webp"}

// FindAndProbe looks for a sibling of baseNoExt (no extension) under dir, trying each of
// Extensions in order, and returns the first match's path and pixel size.
func FindAndProbe(dir, baseNoExt string) (path string, width, height uint32, err error) {
	for _, ext := range Extensions {
		candidate := filepath.Join(dir, baseNoExt+ext)
		if _, statErr := os.Stat(candidate); statErr != nil {
			continue
		}
		w, h, probeErr := Probe(candidate)
		if probeErr != nil {
			return "", 0, 0, probeErr
		}
		return candidate, w, h, nil
	}
	return "", 0, 0, fmt.Errorf("imageprobe: no image found for %q in %s (tried %v)", baseNoExt, dir, Extensions)
}

// Probe decodes just the header of the image at path and returns its pixel dimensions.
// bmp and webp are not registered with the image package by the standard library, so a probe
// of one of those extensions falls back to erroring with a clear message rather than silently
// guessing dimensions.
func Probe(path string) (width, height uint32, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("imageprobe: decode header of %s: %w", path, err)
	}
	return uint32(cfg.Width), uint32(cfg.Height), nil
}
