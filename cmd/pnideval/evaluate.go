package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/swdee/go-pnideval"
	"github.com/swdee/go-pnideval/annotation"
	"github.com/swdee/go-pnideval/apeval"
	"github.com/swdee/go-pnideval/config"
	"github.com/swdee/go-pnideval/region"
	"github.com/swdee/go-pnideval/report"
	"github.com/swdee/go-pnideval/stats"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <ground-truth> <detections>",
	Short: "Evaluate detections against ground truth",
	Long: `Evaluate compares the detection annotations with the ground truth
annotations drawing by drawing.  For the txt and xml formats both arguments
are directories searched recursively, files are paired by file name.  For the
json format the arguments are a COCO ground truth file and a COCO result list.`,
	Args: cobra.ExactArgs(2),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().String("format", "", "Annotation format: txt, xml or json")
	evaluateCmd.Flags().String("output", "", "Directory for the result files (default stdout)")
	evaluateCmd.Flags().Float64("iou", 0, "IoU threshold for a match")
	evaluateCmd.Flags().Float64("score-threshold", 0, "Minimum detection score")
	evaluateCmd.Flags().Float64("nms", 0, "NMS IoU threshold, 0 disables NMS")
	evaluateCmd.Flags().String("recognition-mode", "", "Recognition ratio denominator: gt or tp")
	evaluateCmd.Flags().String("aggregation", "", "Corpus precision and recall: pooled or averaged")
	evaluateCmd.Flags().Bool("compare-angle", false, "Report the degree correction ratio")
	evaluateCmd.Flags().Bool("symbol-only", false, "Report figures without text classes")
	evaluateCmd.Flags().Bool("text-matches", false, "Write the text match list")
	evaluateCmd.Flags().Bool("score-column", false, "Tenth txt column of detections is a score")
	evaluateCmd.Flags().Int("workers", 0, "Drawings evaluated concurrently")
}

// applyEvaluateFlags copies changed flags over the configuration
func applyEvaluateFlags(cmd *cobra.Command, cfg *config.Config) {

	o := override{cmd: cmd}
	e := &cfg.Evaluate

	o.setString("format", &e.Format)
	o.setFloat("iou", &e.IoU)
	o.setFloat("score-threshold", &e.ScoreThreshold)
	o.setFloat("nms", &e.NMS)
	o.setString("recognition-mode", &e.RecognitionMode)
	o.setString("aggregation", &e.Aggregation)
	o.setBool("compare-angle", &e.CompareAngle)
	o.setBool("symbol-only", &e.SymbolOnly)
	o.setBool("text-matches", &e.TextMatches)
	o.setBool("score-column", &e.ScoreColumn)
	o.setInt("workers", &e.Workers)
}

func runEvaluate(cmd *cobra.Command, args []string) error {

	cfg, err := loadConfig()

	if err != nil {
		return err
	}

	applyEvaluateFlags(cmd, cfg)

	classes, err := loadClasses(cfg)

	if err != nil {
		return err
	}

	// validated by loadClasses
	format, _ := annotation.ParseFormat(cfg.Evaluate.Format)
	recMode, _ := stats.ParseRecognitionMode(cfg.Evaluate.RecognitionMode)
	agg, _ := stats.ParseAggregation(cfg.Evaluate.Aggregation)

	policy, err := cfg.MatchPolicy(classes)

	if err != nil {
		return err
	}

	filterParams, err := cfg.FilterParams(classes)

	if err != nil {
		return err
	}

	gtDocs, dtDocs, exclude, err := loadCorpus(args[0], args[1], format, classes, cfg)

	if err != nil {
		return err
	}

	sets, missing := annotation.Pair(gtDocs, dtDocs, exclude, region.NewIDGenerator())

	for _, m := range missing {
		slog.Warn("drawing has no counterpart, evaluated as empty",
			"drawing", m.DrawingID, "missing", m.Missing.String())
	}

	if len(sets) == 0 {
		return fmt.Errorf("no drawings to evaluate")
	}

	textClasses := classes.TextClasses()

	eval := &pnideval.Evaluation{
		Policy: policy,
		Filter: filterParams,
		Stats: stats.Options{
			TextClasses:  textClasses,
			CompareAngle: cfg.Evaluate.CompareAngle,
		},
		AP:         &apeval.COCO{MaxDetections: cfg.Evaluate.APMaxDetections},
		SymbolOnly: cfg.Evaluate.SymbolOnly,
		Workers:    cfg.Evaluate.Workers,
		Logger:     slog.Default(),
	}

	bar := newProgressBar(len(sets), "Evaluating", "drawings")
	res, err := eval.Run(cmd.Context(), sets, func() { _ = bar.Add(1) })
	_ = bar.Finish()

	if err != nil {
		return err
	}

	runID := uuid.NewString()
	opts := report.Options{
		Classes:         classes,
		Recognition:     cfg.Evaluate.Recognition && len(textClasses) > 0,
		RecognitionMode: recMode,
		CompareAngle:    cfg.Evaluate.CompareAngle,
		SymbolOnly:      cfg.Evaluate.SymbolOnly,
		Aggregation:     agg,
	}

	result := report.Result{RunID: runID, Corpus: res.Corpus, AP: res.AP, SymbolAP: res.SymbolAP}

	if err := writeOutput(mustGetString(cmd, "output"), "results.txt", func(w io.Writer) error {
		return report.WriteResults(w, result, opts)
	}); err != nil {
		return err
	}

	if cfg.Evaluate.TextMatches {
		tm := report.TextMatchOptions{
			TextClasses:    textClasses,
			RecognizedOnly: recMode == stats.ScoreTruePositive,
		}

		if err := writeOutput(mustGetString(cmd, "output"), "text_matches.txt", func(w io.Writer) error {
			return report.WriteTextMatches(w, res.Matched(), tm)
		}); err != nil {
			return err
		}
	}

	precision, recall := res.Corpus.PrecisionRecall(agg)
	slog.Info("evaluation finished", "run", runID, "drawings", len(sets),
		"precision", precision, "recall", recall)

	return nil
}

// loadCorpus reads both sides of the corpus.  Drawings whose annotation
// failed to parse on either side are returned in exclude.
func loadCorpus(gtPath, dtPath string, format annotation.Format, classes *region.ClassMap,
	cfg *config.Config) (gtDocs, dtDocs map[string]*annotation.Document, exclude map[string]bool, err error) {

	exclude = make(map[string]bool)

	if format == annotation.FormatCOCO {
		gtDocs, dtDocs, err = loadCOCO(gtPath, dtPath, classes)

		if err != nil {
			return nil, nil, nil, err
		}

		logUnknown(gtDocs, region.GroundTruth)
		logUnknown(dtDocs, region.Detection)

		return gtDocs, dtDocs, exclude, nil
	}

	gtDec := annotation.Decoder{Format: format, Classes: classes}
	dtDec := annotation.Decoder{
		Format:  format,
		Classes: classes,
		Text:    annotation.TextOptions{ScoreColumn: cfg.Evaluate.ScoreColumn},
	}

	gtDocs, err = loadSide(gtPath, gtDec, region.GroundTruth, exclude)

	if err != nil {
		return nil, nil, nil, err
	}

	dtDocs, err = loadSide(dtPath, dtDec, region.Detection, exclude)

	if err != nil {
		return nil, nil, nil, err
	}

	return gtDocs, dtDocs, exclude, nil
}

// loadSide loads one annotation directory, logging files that could not be
// parsed and adding their drawings to exclude
func loadSide(dir string, dec annotation.Decoder, role region.Role,
	exclude map[string]bool) (map[string]*annotation.Document, error) {

	files, err := annotation.ListDir(dir, dec.Format)

	if err != nil {
		return nil, err
	}

	bar := newProgressBar(len(files), "Loading "+role.String(), "files")
	docs, fileErrs, err := annotation.LoadDir(dir, dec, func() { _ = bar.Add(1) })
	_ = bar.Finish()

	if err != nil {
		return nil, err
	}

	for _, fe := range fileErrs {
		slog.Warn("annotation skipped", "file", fe.Path, "drawing", fe.DrawingID, "err", fe.Err)
		exclude[fe.DrawingID] = true
	}

	logUnknown(docs, role)

	return docs, nil
}

// loadCOCO reads the COCO ground truth and result files
func loadCOCO(gtFile, dtFile string, classes *region.ClassMap) (gtDocs, dtDocs map[string]*annotation.Document, err error) {

	gt, err := os.Open(gtFile)

	if err != nil {
		return nil, nil, fmt.Errorf("error opening file: %w", err)
	}

	defer gt.Close()

	dt, err := os.Open(dtFile)

	if err != nil {
		return nil, nil, fmt.Errorf("error opening file: %w", err)
	}

	defer dt.Close()

	return annotation.ReadCOCO(gt, dt, classes)
}

// logUnknown reports class names skipped because the class map lacks them
func logUnknown(docs map[string]*annotation.Document, role region.Role) {

	total := make(map[string]int)

	for _, doc := range docs {
		for name, n := range doc.Unknown {
			total[name] += n
		}
	}

	names := make([]string, 0, len(total))

	for name := range total {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		slog.Warn("unknown class skipped", "role", role.String(), "class", name, "regions", total[name])
	}
}

// writeOutput writes to the named file in dir, or stdout when dir is empty
func writeOutput(dir, name string, write func(w io.Writer) error) error {

	if dir == "" {
		return write(os.Stdout)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)

	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}

	if err := write(f); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("error closing %s: %w", path, err)
	}

	slog.Info("file written", "file", path)

	return nil
}

// newProgressBar creates a progress bar on stderr so reports on stdout stay
// clean
func newProgressBar(count int, description, unit string) *progressbar.ProgressBar {
	return progressbar.NewOptions(count,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(unit),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}
