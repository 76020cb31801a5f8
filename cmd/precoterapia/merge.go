package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/precoterapia/precoterapia/internal/cli"
	"github.com/precoterapia/precoterapia/internal/common"
	"github.com/precoterapia/precoterapia/internal/join"
	"github.com/precoterapia/precoterapia/internal/model"
	"github.com/precoterapia/precoterapia/internal/registry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func mergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Join price aggregates with public mental-health indicators",
		Long: `Attach IBGE codes to the municipality price aggregates and left-join
notification case counts (CID-10 F32/F41 by default) and CAPS facility
counts. Two distinct output shapes are available:

  merge timeseries   one row per municipality, type and year
  merge snapshot     one row per municipality and type, cases summed across years`,
	}

	cmd.AddCommand(mergeTimeseriesCmd())
	cmd.AddCommand(mergeSnapshotCmd())
	return cmd
}

func mergeTimeseriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timeseries",
		Short: "One output row per municipality, professional type and year",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMerge("timeseries")
		},
	}
}

func mergeSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "One output row per municipality and professional type, cases summed across years",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMerge("snapshot")
		},
	}
}

func runMerge(mode string) error {
	slog.Info(cli.FormatTitle("Joining external indicators"))

	outDir := viper.GetString("paths.output_dir")

	aggs, err := join.ReadAggregates(filepath.Join(outDir, "precos_por_municipio.csv"))
	if err != nil {
		return err
	}

	reg, err := registry.Load(viper.GetString("paths.municipios"))
	if err != nil {
		return err
	}

	cases, err := loadCases()
	if err != nil {
		return err
	}
	slog.Info("Aggregated notification cases", "rows", len(cases))

	facilities := loadFacilitiesOptional()

	var (
		out     = filepath.Join(outDir, fmt.Sprintf("base_precos_mentais_%s.csv", mode))
		resultE error
	)
	switch mode {
	case "timeseries":
		df, joinErr := join.Timeseries(aggs, reg, cases, facilities)
		if joinErr != nil {
			return joinErr
		}
		resultE = join.WriteTable(out, df)
	case "snapshot":
		df, joinErr := join.Snapshot(aggs, reg, cases, facilities)
		if joinErr != nil {
			return joinErr
		}
		resultE = join.WriteTable(out, df)
	}
	if resultE != nil {
		return resultE
	}

	slog.Info(cli.FormatSuccess("Wrote " + out))
	return nil
}

// loadCases expands the notification glob and aggregates the filtered case
// counts. No matching file is fatal: the join stage has nothing to do
// without its indicator input.
func loadCases() ([]model.CaseCount, error) {
	pattern := viper.GetString("paths.notifications_glob")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad notifications glob %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files match %s", common.ErrMissingInput, pattern)
	}
	sort.Strings(paths)

	return join.LoadNotifications(paths, viper.GetStringSlice("merge.cid_prefixes"))
}

// loadFacilitiesOptional loads the CAPS table when present. A missing file
// only skips the facility join, matching how the source data is shipped.
func loadFacilitiesOptional() []model.FacilityCount {
	path := viper.GetString("paths.caps")
	if _, err := os.Stat(path); err != nil {
		slog.Warn("CAPS file not found, skipping facility join", "path", path)
		return nil
	}

	facilities, err := join.LoadFacilities(path)
	if err != nil {
		slog.Warn("Failed to load CAPS file, skipping facility join",
			"path", path, "error", err)
		return nil
	}
	return facilities
}
