package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/precoterapia/precoterapia/internal/aggregate"
	"github.com/precoterapia/precoterapia/internal/cli"
	"github.com/precoterapia/precoterapia/internal/common"
	"github.com/precoterapia/precoterapia/internal/ingest"
	"github.com/precoterapia/precoterapia/internal/model"
	"github.com/precoterapia/precoterapia/internal/registry"
	"github.com/precoterapia/precoterapia/internal/resolver"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// sourceInput is one conventional scrape output file.
type sourceInput struct {
	file   string
	source model.Source
	ptype  model.ProfessionalType
}

func unifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unify",
		Short: "Unify scraped price files into professional and municipality tables",
		Long: `Load the per-source price files, resolve every record to its official
municipality, drop junk and duplicate rows, and write:

  dados_precos_unificados.csv   one row per priced professional
  precos_por_municipio.csv      count/mean/median/min/max per municipality and type`,
		RunE: runUnify,
	}

	cmd.Flags().Bool("skip-missing", false, "Skip missing price files instead of aborting")
	cmd.Flags().Float64("price-min", 0, "Drop prices below this amount (0 disables)")
	cmd.Flags().Float64("price-max", 0, "Drop prices above this amount (0 disables)")

	_ = viper.BindPFlag("unify.skip_missing", cmd.Flags().Lookup("skip-missing"))
	_ = viper.BindPFlag("unify.price_min", cmd.Flags().Lookup("price-min"))
	_ = viper.BindPFlag("unify.price_max", cmd.Flags().Lookup("price-max"))

	return cmd
}

// sourceInputs enumerates the conventional per-source filenames under the
// configured directories.
func sourceInputs() []sourceInput {
	doc := viper.GetString("paths.doctoralia_dir")
	bc := viper.GetString("paths.boaconsulta_dir")

	return []sourceInput{
		{filepath.Join(doc, "doctoralia_psicologos.csv"), model.SourceDoctoralia, model.TypePsychologist},
		{filepath.Join(doc, "doctoralia_psiquiatras.csv"), model.SourceDoctoralia, model.TypePsychiatrist},
		{filepath.Join(bc, "psicologos_boaconsulta.csv"), model.SourceBoaConsulta, model.TypePsychologist},
		{filepath.Join(bc, "psiquiatras_boaconsulta.csv"), model.SourceBoaConsulta, model.TypePsychiatrist},
		{filepath.Join(bc, "psicoterapeutas_boaconsulta.csv"), model.SourceBoaConsulta, model.TypePsychotherapist},
	}
}

func runUnify(cmd *cobra.Command, _ []string) error {
	slog.Info(cli.FormatTitle("Unifying scraped price files"))

	// The registry is required before any transformation begins: without it
	// no municipality can be resolved.
	reg, err := registry.Load(viper.GetString("paths.municipios"))
	if err != nil {
		return err
	}
	slog.Info("Loaded municipality registry", "municipalities", reg.Len())

	res := resolver.New(reg, overridesFromConfig())

	skipMissing := viper.GetBool("unify.skip_missing")

	var records []model.ProfessionalRecord
	var loaded int
	for _, input := range sourceInputs() {
		recs, stats, loadErr := ingest.LoadSource(input.file, input.source, input.ptype)
		if loadErr != nil {
			if skipMissing && errorsIsMissing(loadErr) {
				slog.Warn("Skipping missing price file", "file", input.file)
				continue
			}
			return loadErr
		}

		slog.Info("Loaded price file",
			"file", input.file,
			"rows", stats.Rows,
			"junk", stats.Junk,
			"no_price", stats.NoPrice)
		records = append(records, recs...)
		loaded++
	}
	if loaded == 0 {
		return common.NewUserError("no price files found; run scrape first", common.ErrMissingInput)
	}

	// Resolve canonical locations. Unresolved records are counted, not
	// rejected.
	var unresolved int
	for i := range records {
		records[i].Location = res.Resolve(&records[i])
		if !records[i].Location.Resolved() {
			unresolved++
		}
	}
	if unresolved > 0 {
		slog.Warn("Records without an IBGE match",
			"unresolved", unresolved, "total", len(records))
	}

	// Keep only priced records, apply the optional sanity band, dedupe.
	priced := ingest.FilterPriced(records)
	min := viper.GetFloat64("unify.price_min")
	max := viper.GetFloat64("unify.price_max")
	if min > 0 && max > 0 {
		before := len(priced)
		priced = ingest.FilterPriceBand(priced, min, max)
		slog.Info("Applied price band", "dropped", before-len(priced), "min", min, "max", max)
	}
	unified := ingest.Dedupe(priced)

	outDir := viper.GetString("paths.output_dir")

	unifiedPath := filepath.Join(outDir, "dados_precos_unificados.csv")
	if err := ingest.WriteUnified(unifiedPath, unified); err != nil {
		return err
	}
	slog.Info(cli.FormatSuccess(fmt.Sprintf("Wrote %s (%d rows)", unifiedPath, len(unified))))

	aggs := aggregate.Compute(unified)
	aggPath := filepath.Join(outDir, "precos_por_municipio.csv")
	if err := aggregate.Write(aggPath, aggs); err != nil {
		return err
	}
	slog.Info(cli.FormatSuccess(fmt.Sprintf("Wrote %s (%d groups)", aggPath, len(aggs))))

	return nil
}

// overridesFromConfig layers config-declared slug overrides over the
// curated defaults. Config values use "Display Name,UF".
func overridesFromConfig() resolver.Overrides {
	extra := resolver.Overrides{}
	for slug, pair := range viper.GetStringMapString("resolver.overrides") {
		i := strings.LastIndex(pair, ",")
		if i <= 0 || i == len(pair)-1 {
			slog.Warn("Ignoring malformed slug override", "slug", slug, "value", pair)
			continue
		}
		extra[slug] = resolver.Override{
			Name:  strings.TrimSpace(pair[:i]),
			State: strings.ToUpper(strings.TrimSpace(pair[i+1:])),
		}
	}
	return resolver.DefaultOverrides().Merge(extra)
}

func errorsIsMissing(err error) bool {
	return errors.Is(err, common.ErrMissingInput)
}
