package panlabel

// Conversion orchestrator (§4.5): wires reader -> validate -> analyzer -> writer and enforces
// the --allow-lossy gate. It never inspects adapter internals, only the typed Dataset and the
// analyzer's declarative rules, matching the teacher's main() which only ever calls through
// the lblconv.From*/To*/Write* functions and never reaches into their internals.

import "log"

// ConvertOptions configures a single Convert invocation (§6 convert command).
type ConvertOptions struct {
	From          Format // FormatUnknown means "run auto-detection against InputPath"
	To            Format
	InputPath     string
	OutputPath    string
	Strict        bool
	NoValidate    bool
	AllowLossy    bool
	BoundsTolerance float64 // 0 selects DefaultBoundsTolerance
}

// ConvertResult bundles everything a caller (CLI or test) needs to report on a conversion.
type ConvertResult struct {
	Detected   Format // the resolved --from, useful when opts.From was FormatUnknown
	Validation *ValidationReport
	Report     ConversionReport
}

// Convert runs the full pipeline described in §4.5 and returns the conversion report. On a
// validation error or a lossy conversion blocked without --allow-lossy, it returns a non-nil
// error (*ValidationError or *LossyConversionBlocked) alongside the partial ConvertResult so
// callers can still render the report.
func Convert(opts ConvertOptions) (ConvertResult, error) {
	result := ConvertResult{Detected: opts.From}

	// Step 1: auto-detect if requested.
	from := opts.From
	if from == FormatUnknown {
		detected, err := DetectFormat(opts.InputPath)
		if err != nil {
			return result, err
		}
		from = detected
		result.Detected = detected
	}

	// Step 2: invoke the source reader. Reader errors are fatal.
	reader, err := ReaderFor(from)
	if err != nil {
		return result, err
	}
	dataset, err := reader.Read(opts.InputPath)
	if err != nil {
		return result, err
	}

	// Step 3: validate unless disabled. Errors are fatal; warnings pass through unless --strict.
	if !opts.NoValidate {
		tolerance := opts.BoundsTolerance
		if tolerance == 0 {
			tolerance = DefaultBoundsTolerance
		}
		validation := Validate(dataset, tolerance)
		if opts.Strict {
			validation = validation.PromoteWarnings()
		}
		result.Validation = &validation
		if validation.HasErrors() {
			return result, &ValidationError{Report: validation}
		}
	}

	// Step 4: build the conversion report via the lossiness analyzer.
	report := Analyze(from, opts.To, dataset)
	result.Report = report

	// Step 5: block on lossy warnings unless --allow-lossy was given.
	if report.IsLossy() && !opts.AllowLossy {
		return result, &LossyConversionBlocked{Report: report}
	}

	// Step 6: invoke the destination writer. Writer errors are fatal.
	writer, err := WriterFor(opts.To)
	if err != nil {
		return result, err
	}
	if err := writer.Write(opts.OutputPath, dataset); err != nil {
		return result, err
	}

	log.Printf("panlabel: converted %d image(s), %d annotation(s) from %s to %s",
		len(dataset.Images), len(dataset.Annotations), from, opts.To)

	return result, nil
}
