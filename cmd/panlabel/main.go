// Command panlabel implements the CLI surface of spec.md §6: validate, convert, stats, diff,
// sample and list-formats, each as its own flag.FlagSet, matching the teacher's per-mode flag
// registration in cmd/lblconv/main.go but split one FlagSet per subcommand.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/sensorable/panlabel"

	_ "github.com/sensorable/panlabel/format/coco"
	_ "github.com/sensorable/panlabel/format/cvat"
	_ "github.com/sensorable/panlabel/format/hf"
	_ "github.com/sensorable/panlabel/format/irjson"
	_ "github.com/sensorable/panlabel/format/labelstudio"
	_ "github.com/sensorable/panlabel/format/tfod"
	_ "github.com/sensorable/panlabel/format/voc"
	_ "github.com/sensorable/panlabel/format/yolo"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("panlabel: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "validate":
		err = runValidate(os.Args[2:])
	case "convert":
		err = runConvert(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "diff":
		err = runDiff(os.Args[2:])
	case "sample":
		err = runSample(os.Args[2:])
	case "list-formats":
		err = runListFormats(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "panlabel: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: panlabel <validate|convert|stats|diff|sample|list-formats> [flags]")
}

func parseFormatFlag(token string) (panlabel.Format, error) {
	if token == "" || strings.EqualFold(strings.TrimSpace(token), "auto") {
		return panlabel.FormatUnknown, nil
	}
	return panlabel.ParseFormatToken(token)
}

func readDataset(path, formatToken string) (*panlabel.Dataset, panlabel.Format, error) {
	f, err := parseFormatFlag(formatToken)
	if err != nil {
		return nil, panlabel.FormatUnknown, err
	}
	if f == panlabel.FormatUnknown {
		f, err = panlabel.DetectFormat(path)
		if err != nil {
			return nil, panlabel.FormatUnknown, err
		}
	}
	reader, err := panlabel.ReaderFor(f)
	if err != nil {
		return nil, panlabel.FormatUnknown, err
	}
	d, err := reader.Read(path)
	return d, f, err
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	format := fs.String("format", "", "source format token, or omit for auto-detect")
	strict := fs.Bool("strict", false, "promote warnings to errors")
	output := fs.String("output", "text", "text|json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("validate: expected exactly one <input> argument")
	}
	input := fs.Arg(0)

	d, _, err := readDataset(input, *format)
	if err != nil {
		return err
	}
	report := panlabel.Validate(d, panlabel.DefaultBoundsTolerance)
	if *strict {
		report = report.PromoteWarnings()
	}

	if *output == "json" {
		if err := printJSON(report); err != nil {
			return err
		}
	} else {
		printValidationText(report)
	}
	if report.HasErrors() {
		os.Exit(1)
	}
	return nil
}

func printValidationText(r panlabel.ValidationReport) {
	if len(r.Issues) == 0 {
		fmt.Println("ok: no issues found")
		return
	}
	for _, issue := range r.Issues {
		fmt.Printf("%s\t%s\t%s\n", issue.Severity, issue.Code, issue.Message)
	}
}

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	from := fs.String("from", "auto", "source format token, or auto")
	to := fs.String("to", "", "destination format token (required)")
	in := fs.String("i", "", "input path (required)")
	out := fs.String("o", "", "output path (required)")
	strict := fs.Bool("strict", false, "promote validation warnings to errors")
	noValidate := fs.Bool("no-validate", false, "skip validation")
	allowLossy := fs.Bool("allow-lossy", false, "proceed despite lossy-conversion warnings")
	report := fs.String("report", "text", "text|json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *to == "" || *in == "" || *out == "" {
		return fmt.Errorf("convert: --to, -i and -o are required")
	}

	toFormat, err := panlabel.ParseFormatToken(*to)
	if err != nil {
		return err
	}
	var fromFormat panlabel.Format
	if *from != "auto" {
		fromFormat, err = panlabel.ParseFormatToken(*from)
		if err != nil {
			return err
		}
	}

	result, err := panlabel.Convert(panlabel.ConvertOptions{
		From: fromFormat, To: toFormat, InputPath: *in, OutputPath: *out,
		Strict: *strict, NoValidate: *noValidate, AllowLossy: *allowLossy,
	})
	if *report == "json" {
		if jsonErr := printJSON(result.Report); jsonErr != nil {
			return jsonErr
		}
	} else {
		printConversionReportText(result.Report)
	}
	return err
}

func printConversionReportText(r panlabel.ConversionReport) {
	fmt.Printf("converted %s -> %s: %d image(s), %d annotation(s)\n",
		r.From, r.To, r.Output.Images, r.Output.Annotations)
	for _, issue := range r.Issues {
		fmt.Printf("%s\t%s\t%s\n", issue.Severity, issue.Code, issue.Message)
	}
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	format := fs.String("format", "", "source format token, or omit for auto-detect")
	topN := fs.Int("top", 10, "top-N co-occurrence pairs")
	tolerance := fs.Float64("tolerance", panlabel.DefaultBoundsTolerance, "out-of-bounds tolerance in px")
	output := fs.String("output", "text", "text|json|html")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("stats: expected exactly one <input> argument")
	}

	d, _, err := readDataset(fs.Arg(0), *format)
	if err != nil {
		return err
	}
	report := panlabel.Inspect(d, *topN, *tolerance)

	switch *output {
	case "json":
		return printJSON(report)
	case "html":
		return printStatsHTML(report)
	default:
		printStatsText(report)
		return nil
	}
}

func printStatsText(r panlabel.InspectionReport) {
	fmt.Printf("images: %d, annotations: %d, categories: %d\n", r.ImageCount, r.AnnotationCount, r.CategoryCount)
	fmt.Printf("bbox: degenerate=%d out_of_bounds=%d area_min=%.1f area_median=%.1f area_max=%.1f\n",
		r.BBoxQuality.DegenerateCount, r.BBoxQuality.OutOfBoundsCount,
		r.BBoxQuality.AreaMin, r.BBoxQuality.AreaMedian, r.BBoxQuality.AreaMax)
	for _, pair := range r.TopCooccurrence {
		fmt.Printf("cooccur\t%s\t%s\t%d\n", pair.LabelA, pair.LabelB, pair.Count)
	}
}

// printStatsHTML renders a minimal, dependency-free HTML summary. A full presentation layer is
// an external collaborator (SPEC_FULL.md §1); this is just enough to fulfill --output html.
func printStatsHTML(r panlabel.InspectionReport) error {
	var b strings.Builder
	b.WriteString("<!doctype html><html><body>")
	fmt.Fprintf(&b, "<p>images: %d, annotations: %d, categories: %d</p>", r.ImageCount, r.AnnotationCount, r.CategoryCount)
	b.WriteString("<table><tr><th>label</th><th>count</th></tr>")
	for label, count := range r.LabelHistogram {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td></tr>", label, count)
	}
	b.WriteString("</table></body></html>")
	_, err := fmt.Println(b.String())
	return err
}

func runDiff(args []string) error {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	formatA := fs.String("format-a", "", "format token for A, or omit for auto-detect")
	formatB := fs.String("format-b", "", "format token for B, or omit for auto-detect")
	matchBy := fs.String("match-by", "id", "id|iou")
	iouThreshold := fs.Float64("iou-threshold", panlabel.DefaultIoUThreshold, "minimum IoU for --match-by iou")
	detail := fs.Bool("detail", false, "include per-annotation detail")
	output := fs.String("output", "text", "text|json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("diff: expected exactly two arguments <A> <B>")
	}

	a, _, err := readDataset(fs.Arg(0), *formatA)
	if err != nil {
		return err
	}
	b, _, err := readDataset(fs.Arg(1), *formatB)
	if err != nil {
		return err
	}

	mode := panlabel.MatchByID
	if *matchBy == "iou" {
		mode = panlabel.MatchByIoU
	}
	report := panlabel.Diff(a, b, panlabel.DiffOptions{Mode: mode, IoUThreshold: *iouThreshold, Detail: *detail})

	if *output == "json" {
		return printJSON(report)
	}
	printDiffText(report)
	return nil
}

func printDiffText(r panlabel.DiffReport) {
	fmt.Printf("images: +%d -%d\n", len(r.ImagesAdded), len(r.ImagesRemoved))
	fmt.Printf("categories: +%d -%d\n", len(r.CategoriesAdded), len(r.CategoriesRemoved))
	fmt.Printf("annotations: +%d -%d ~%d\n", r.AnnotationsAdded, r.AnnotationsRemoved, r.AnnotationsChanged)
}

func runSample(args []string) error {
	fs := flag.NewFlagSet("sample", flag.ExitOnError)
	from := fs.String("from", "auto", "source format token, or auto")
	to := fs.String("to", "", "destination format token; defaults to the source format")
	in := fs.String("i", "", "input path (required)")
	out := fs.String("o", "", "output path (required)")
	n := fs.Int("n", 0, "target image count")
	fraction := fs.Float64("fraction", 0, "target fraction in (0,1]")
	seed := fs.Int64("seed", 0, "deterministic sampling seed")
	strategy := fs.String("strategy", "random", "random|stratified")
	categories := fs.String("categories", "", "comma-separated category names to filter on")
	categoryMode := fs.String("category-mode", "images", "images|annotations")
	allowLossy := fs.Bool("allow-lossy", false, "proceed despite lossy-conversion warnings")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return fmt.Errorf("sample: -i and -o are required")
	}
	if *n == 0 && *fraction == 0 {
		return fmt.Errorf("sample: one of -n or --fraction is required")
	}

	d, srcFormat, err := readDataset(*in, *from)
	if err != nil {
		return err
	}
	dstFormat := srcFormat
	if *to != "" {
		dstFormat, err = panlabel.ParseFormatToken(*to)
		if err != nil {
			return err
		}
	}

	strat := panlabel.StrategyRandom
	if *strategy == "stratified" {
		strat = panlabel.StrategyStratified
	}
	catMode := panlabel.CategoryModeImages
	if *categoryMode == "annotations" {
		catMode = panlabel.CategoryModeAnnotations
	}
	var cats []string
	if *categories != "" {
		cats = strings.Split(*categories, ",")
	}

	sampled := panlabel.Sample(d, panlabel.SampleOptions{
		N: *n, Fraction: *fraction, Seed: *seed, Strategy: strat,
		Categories: cats, CategoryMode: catMode,
	})

	if dstFormat != srcFormat {
		report := panlabel.Analyze(srcFormat, dstFormat, sampled)
		if report.IsLossy() && !*allowLossy {
			return &panlabel.LossyConversionBlocked{Report: report}
		}
	}
	writer, err := panlabel.WriterFor(dstFormat)
	if err != nil {
		return err
	}
	if err := writer.Write(*out, sampled); err != nil {
		return err
	}

	log.Printf("sampled %d image(s), %d annotation(s) into %s", len(sampled.Images), len(sampled.Annotations), *out)
	return nil
}

func runListFormats(args []string) error {
	fs := flag.NewFlagSet("list-formats", flag.ExitOnError)
	output := fs.String("output", "text", "text|json")
	if err := fs.Parse(args); err != nil {
		return err
	}

	formats := panlabel.ListFormats()
	if *output == "json" {
		return printJSON(formats)
	}
	for _, f := range formats {
		fmt.Printf("%s\tread=%t\twrite=%t\n", f.Format, f.CanRead, f.CanWrite)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
