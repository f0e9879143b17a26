package panlabel

// Distinct error kinds per §7, each carrying structured context. Adapters return these upward
// without swallowing each other's errors (§7 Propagation).

import "fmt"

// ParseError signals malformed source bytes. Line/Column are 0 when unavailable.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("panlabel: parse error in %s at line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("panlabel: parse error in %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError signals well-formed input that is semantically invalid: a missing required
// field or a disallowed value (e.g. an unsupported Label Studio result type).
type SchemaError struct {
	Path    string
	Field   string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("panlabel: schema error in %s: field %q: %s", e.Path, e.Field, e.Message)
	}
	return fmt.Sprintf("panlabel: schema error in %s: %s", e.Path, e.Message)
}

// UnsupportedFeature signals a feature outside the detection/conversion scope: a polygon,
// keypoints, an oriented box, or any other geometry this system deliberately does not model.
type UnsupportedFeature struct {
	Path    string
	Feature string
}

func (e *UnsupportedFeature) Error() string {
	return fmt.Sprintf("panlabel: unsupported feature %q in %s", e.Feature, e.Path)
}

// IoError wraps a filesystem failure with the path that caused it.
type IoError struct {
	Path string
	Err  error
}

func (e *IoError) Error() string { return fmt.Sprintf("panlabel: io error for %s: %v", e.Path, e.Err) }
func (e *IoError) Unwrap() error { return e.Err }

// AmbiguousDetection signals that the auto-detector found more than one format marker for the
// same input.
type AmbiguousDetection struct {
	Path       string
	Candidates []string
}

func (e *AmbiguousDetection) Error() string {
	return fmt.Sprintf("panlabel: ambiguous format at %s: candidates %v", e.Path, e.Candidates)
}

// UnknownFormat signals that the auto-detector found no recognizable marker.
type UnknownFormat struct {
	Path        string
	Remediation string
}

func (e *UnknownFormat) Error() string {
	return fmt.Sprintf("panlabel: could not detect format for %s: %s", e.Path, e.Remediation)
}

// ValidationError signals a structural invariant violation in the IR, fatal at the
// orchestrator layer unless it is merely a warning (see ValidationReport).
type ValidationError struct {
	Report ValidationReport
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("panlabel: validation failed with %d error(s)", e.Report.ErrorCount())
}

// LossyConversionBlocked signals that the conversion report contains warnings and
// --allow-lossy was not given.
type LossyConversionBlocked struct {
	Report ConversionReport
}

func (e *LossyConversionBlocked) Error() string {
	return fmt.Sprintf("panlabel: conversion from %s to %s blocked by %d lossy warning(s);"+
		" rerun with --allow-lossy to proceed", e.Report.From, e.Report.To, len(e.Report.Warnings()))
}

// WriteError signals that a writer failed, e.g. because the output path is invalid or of the
// wrong kind.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("panlabel: write error for %s: %v", e.Path, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }
