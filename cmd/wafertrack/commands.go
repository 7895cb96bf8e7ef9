package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gmarchiori/wafertrack/internal/common"
	"github.com/gmarchiori/wafertrack/internal/datamap"
	"github.com/gmarchiori/wafertrack/internal/dotout"
	"github.com/gmarchiori/wafertrack/internal/export"
	"github.com/gmarchiori/wafertrack/internal/goggles"
	"github.com/gmarchiori/wafertrack/internal/goldensample"
	"github.com/gmarchiori/wafertrack/internal/snapshot"
)

var statusAt string

var waferStatusCmd = &cobra.Command{
	Use:   "wafer-status <wafer>...",
	Short: "Print the status of every labeled component of one or more wafers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var at *time.Time
		if statusAt != "" {
			parsed, err := time.Parse("2006-01-02", statusAt)
			if err != nil {
				return fmt.Errorf("bad --at date %q: %w", statusAt, common.ErrInvalidInput)
			}
			at = &parsed
		}

		d, err := openDeps(ctx)
		if err != nil {
			return err
		}
		defer d.close()

		binder := datamap.NewBinder(logger)
		for _, wafer := range args {
			col, err := d.loader.LoadWaferCollation(ctx, wafer)
			if err != nil {
				return err
			}
			statuses, err := binder.BuildChipMap(col, "status")
			if err != nil {
				return err
			}
			components := col.AllComponentsByLabel()
			labels := sortedKeys(statuses)
			fmt.Printf("%s (%d labeled components)\n", col.Wafer.Name, len(labels))
			for _, label := range labels {
				v := statuses[label]
				if at != nil {
					v = components[label].StatusOn(*at)
				}
				if v == nil {
					fmt.Printf("  %-8s -\n", label)
					continue
				}
				fmt.Printf("  %-8s %v\n", label, v)
			}
		}
		return nil
	},
}

var (
	plotResult   string
	plotGroup    string
	plotAverage  bool
	plotOutFile  string
	plotFullDict bool
)

var waferPlotCmd = &cobra.Command{
	Use:   "wafer-plot <wafer>",
	Short: "Export a subchip measurement map of a wafer as XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := openDeps(ctx)
		if err != nil {
			return err
		}
		defer d.close()

		col, err := d.loader.LoadWaferCollation(ctx, args[0])
		if err != nil {
			return err
		}

		binder := datamap.NewBinder(logger)
		submap, err := binder.BuildSubchipMap(col, plotResult, plotGroup, goggles.Filter{}, !plotFullDict)
		if err != nil {
			return err
		}

		svc := export.NewService(logger)
		var buf []byte
		if plotAverage {
			avg, err := datamap.AverageSubchipMap(submap)
			if err != nil {
				return err
			}
			buf, err = svc.AveragedMapXLSX(col.Wafer.Name, plotResult, avg)
			if err != nil {
				return err
			}
		} else {
			buf, err = svc.SubchipMapXLSX(col.Wafer.Name, plotResult, submapLocations(submap), submap)
			if err != nil {
				return err
			}
		}

		out := plotOutFile
		if out == "" {
			out = filepath.Join(cfg.Report.OutputDir, fmt.Sprintf("%s_%s.xlsx", col.Wafer.Name, plotResult))
		}
		if err := os.WriteFile(out, buf, 0o644); err != nil {
			return err
		}
		logger.Info("wafer-plot.ok", "wafer", col.Wafer.Name, "result", plotResult, "file", out)
		return nil
	},
}

var (
	dotOutStages  []string
	dotOutOutFile string
)

var chipDotOutCmd = &cobra.Command{
	Use:   "chip-dot-out <wafer>",
	Short: "Assemble the dot-out report of every chip on a wafer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := openDeps(ctx)
		if err != nil {
			return err
		}
		defer d.close()

		col, err := d.loader.LoadWaferCollation(ctx, args[0])
		if err != nil {
			return err
		}

		asm := dotout.NewAssembler(d.projector, logger)
		sel := dotout.StageSelection{Stages: dotOutStages}
		var recs []*dotout.Record
		for _, label := range sortedKeys(col.Chips) {
			chip := col.Chips[label]
			bp, ok := col.BlueprintFor(chip)
			if !ok {
				logger.Warn("dotout.chip.no_blueprint", "chip", chip.Name)
				continue
			}
			rec, err := asm.Assemble(chip, bp, sel, true)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		if len(recs) == 0 {
			return common.MissingInformationf("wafer %q has no chips to report", col.Wafer.Name)
		}

		out := dotOutOutFile
		if out == "" {
			out = filepath.Join(cfg.Report.OutputDir, fmt.Sprintf("%s%s.out.csv", col.Wafer.Name, sel.Suffix()))
		}
		if err := dotout.WriteFile(out, recs...); err != nil {
			return err
		}
		logger.Info("chip-dot-out.ok", "wafer", col.Wafer.Name, "chips", len(recs), "file", out)
		return nil
	},
}

var moduleDotOutCmd = &cobra.Command{
	Use:   "module-dot-out <batch>",
	Short: "Assemble the dot-out report of a module batch's chips",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := openDeps(ctx)
		if err != nil {
			return err
		}
		defer d.close()

		batch, err := d.loader.LoadModuleBatch(ctx, args[0])
		if err != nil {
			return err
		}
		if len(batch.Chips) == 0 {
			return common.MissingInformationf("batch %q resolved no chips", batch.Batch)
		}

		ids := make([]uuid.UUID, 0, len(batch.Chips))
		for _, chip := range batch.Chips {
			ids = append(ids, chip.BlueprintID)
		}
		bps, err := d.loader.LoadBlueprints(ctx, ids)
		if err != nil {
			return err
		}

		asm := dotout.NewAssembler(d.projector, logger)
		sel := dotout.StageSelection{Stages: dotOutStages}
		var recs []*dotout.Record
		for _, chip := range batch.Chips {
			bp, ok := bps[chip.BlueprintID]
			if !ok {
				logger.Warn("dotout.chip.no_blueprint", "chip", chip.Name)
				continue
			}
			rec, err := asm.Assemble(chip, bp, sel, true)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		if len(recs) == 0 {
			return common.MissingInformationf("batch %q has no reportable chips", batch.Batch)
		}

		out := dotOutOutFile
		if out == "" {
			out = filepath.Join(cfg.Report.OutputDir, fmt.Sprintf("%s%s.out.csv", batch.Batch, sel.Suffix()))
		}
		if err := dotout.WriteFile(out, recs...); err != nil {
			return err
		}
		logger.Info("module-dot-out.ok", "batch", batch.Batch, "chips", len(recs), "file", out)
		return nil
	},
}

var (
	goldenPath   string
	goldenAppend bool
)

var goldenSampleCmd = &cobra.Command{
	Use:   "golden-sample <component>",
	Short: "Write or append the golden-sample CSV of a reference component",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := openDeps(ctx)
		if err != nil {
			return err
		}
		defer d.close()

		comp, bp, err := d.loader.LoadComponent(ctx, args[0])
		if err != nil {
			return err
		}

		report, err := goldensample.NewAppender(d.projector.Normalizer(), logger).CompleteReport(comp, bp)
		if err != nil {
			return err
		}

		if goldenAppend {
			if err := goldensample.AppendLast(goldenPath, report); err != nil {
				return err
			}
			logger.Info("golden-sample.append.ok", "component", comp.Name, "file", goldenPath)
			return nil
		}
		if err := goldensample.WriteAll(goldenPath, report); err != nil {
			return err
		}
		logger.Info("golden-sample.write.ok", "component", comp.Name, "rows", len(report.Records), "file", goldenPath)
		return nil
	},
}

var snapshotOutPath string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <wafer>",
	Short: "Save a wafer collation into a local snapshot database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := openDeps(ctx)
		if err != nil {
			return err
		}
		defer d.close()

		col, err := d.loader.LoadWaferCollation(ctx, args[0])
		if err != nil {
			return err
		}

		path := snapshotOutPath
		if path == "" {
			path = cfg.Snapshot.Path
		}
		store, err := snapshot.Open(path, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		return store.SaveCollation(ctx, col)
	},
}

func init() {
	waferStatusCmd.Flags().StringVar(&statusAt, "at", "", "report the status held on this date (YYYY-MM-DD)")

	waferPlotCmd.Flags().StringVar(&plotResult, "result", "", "result name to map")
	waferPlotCmd.Flags().StringVar(&plotGroup, "location-group", "", "location group of the map")
	waferPlotCmd.Flags().BoolVar(&plotAverage, "average", false, "collapse each label to the mean over its locations")
	waferPlotCmd.Flags().BoolVar(&plotFullDict, "full", false, "keep value/error/unit dictionaries instead of bare values")
	waferPlotCmd.Flags().StringVarP(&plotOutFile, "out", "o", "", "output file (default <wafer>_<result>.xlsx)")
	waferPlotCmd.MarkFlagRequired("result")
	waferPlotCmd.MarkFlagRequired("location-group")

	for _, c := range []*cobra.Command{chipDotOutCmd, moduleDotOutCmd} {
		c.Flags().StringArrayVar(&dotOutStages, "stage", nil, "process stage to report (repeat for a mixed-stage report)")
		c.Flags().StringVarP(&dotOutOutFile, "out", "o", "", "output file")
	}

	goldenSampleCmd.Flags().StringVar(&goldenPath, "path", "", "golden-sample CSV file")
	goldenSampleCmd.Flags().BoolVar(&goldenAppend, "append", false, "append only the most recent entry")
	goldenSampleCmd.MarkFlagRequired("path")

	snapshotCmd.Flags().StringVar(&snapshotOutPath, "path", "", "snapshot file (default from config)")
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func submapLocations(submap map[string]map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, cells := range submap {
		for loc := range cells {
			if _, dup := seen[loc]; dup {
				continue
			}
			seen[loc] = struct{}{}
			out = append(out, loc)
		}
	}
	sort.Strings(out)
	return out
}
