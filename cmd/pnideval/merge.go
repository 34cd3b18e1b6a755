package main

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/swdee/go-pnideval"
	"github.com/swdee/go-pnideval/annotation"
	"github.com/swdee/go-pnideval/region"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <input-dir> <output-dir>",
	Short: "Consolidate fragmented text regions",
	Long: `Merge reads every annotation file below the input directory, merges
overlapping text fragments until no further merge is possible and writes the
consolidated annotation of each drawing to the output directory.`,
	Args: cobra.ExactArgs(2),
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)

	mergeCmd.Flags().String("format", "", "Annotation format: txt or xml")
	mergeCmd.Flags().Float64("iof", 0, "Overlap share of the other fragment that always merges")
	mergeCmd.Flags().Float64("y-gap", 0, "Maximum top and bottom edge difference of a text line")
	mergeCmd.Flags().Float64("horizontal-iof", 0, "Overlap share required on the same text line")
	mergeCmd.Flags().Bool("require-same-angle", true, "Only merge fragments with equal rotation")
	mergeCmd.Flags().Bool("score-column", false, "Tenth txt column is a score")
	mergeCmd.Flags().Int("workers", 0, "Drawings processed concurrently")
}

func runMerge(cmd *cobra.Command, args []string) error {

	cfg, err := loadConfig()

	if err != nil {
		return err
	}

	o := override{cmd: cmd}
	o.setString("format", &cfg.Evaluate.Format)
	o.setFloat("iof", &cfg.Merge.IoF)
	o.setFloat("y-gap", &cfg.Merge.YGap)
	o.setFloat("horizontal-iof", &cfg.Merge.HorizontalIoF)
	o.setBool("require-same-angle", &cfg.Merge.RequireSameAngle)
	o.setBool("score-column", &cfg.Evaluate.ScoreColumn)
	o.setInt("workers", &cfg.Evaluate.Workers)

	classes, err := loadClasses(cfg)

	if err != nil {
		return err
	}

	format, _ := annotation.ParseFormat(cfg.Evaluate.Format)

	if format == annotation.FormatCOCO {
		return fmt.Errorf("merge supports the txt and xml formats only")
	}

	params, err := cfg.MergeParams(classes)

	if err != nil {
		return err
	}

	dec := annotation.Decoder{
		Format:  format,
		Classes: classes,
		Text:    annotation.TextOptions{ScoreColumn: cfg.Evaluate.ScoreColumn},
	}

	files, err := annotation.ListDir(args[0], format)

	if err != nil {
		return err
	}

	bar := newProgressBar(len(files), "Loading", "files")
	loaded, fileErrs, err := annotation.LoadDir(args[0], dec, func() { _ = bar.Add(1) })
	_ = bar.Finish()

	if err != nil {
		return err
	}

	for _, fe := range fileErrs {
		slog.Warn("annotation skipped", "file", fe.Path, "drawing", fe.DrawingID, "err", fe.Err)
	}

	ids := make([]string, 0, len(loaded))

	for id := range loaded {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	docs := make([]*annotation.Document, len(ids))
	gen := region.NewIDGenerator()

	for i, id := range ids {
		docs[i] = loaded[id]
		region.Stamp(docs[i].Regions, id, region.Detection, gen)
	}

	c := &pnideval.Consolidation{
		Params:  params,
		Workers: cfg.Evaluate.Workers,
		Logger:  slog.Default(),
	}

	bar = newProgressBar(len(docs), "Merging", "drawings")
	res, err := c.Run(cmd.Context(), docs, func() { _ = bar.Add(1) })
	_ = bar.Finish()

	if err != nil {
		return err
	}

	outDir := args[1]

	for _, doc := range res.Documents {
		doc := doc

		err := writeOutput(outDir, doc.DrawingID+format.Extension(), func(w io.Writer) error {
			if format == annotation.FormatXML {
				return annotation.WriteXML(w, doc, classes)
			}
			return annotation.WriteText(w, doc.Regions, classes)
		})

		if err != nil {
			return err
		}
	}

	slog.Info("merge finished", "drawings", len(res.Documents),
		"merges", res.Stats.Merges, "passes", res.Stats.Passes)

	return nil
}
