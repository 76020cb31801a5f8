package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/precoterapia/precoterapia/internal/cli"
	"github.com/precoterapia/precoterapia/internal/common"
	"github.com/precoterapia/precoterapia/internal/model"
	"github.com/precoterapia/precoterapia/internal/scraper"
	"github.com/precoterapia/precoterapia/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Collect consultation prices from a listing site",
		Long: `Walk a listing site's paginated results for each city slug, extract
professional cards, and append them to the conventional raw CSV for the
site and professional type. Fetched profile pages are cached in SQLite so
interrupted runs resume without re-fetching.`,
		RunE: runScrape,
	}

	cmd.Flags().String("site", "doctoralia", "listing site (doctoralia or boaconsulta)")
	cmd.Flags().String("type", "psicologo", "professional type (psicologo, psiquiatra or psicoterapeuta)")
	cmd.Flags().StringSlice("cities", nil, "city slugs to scrape, e.g. sao-paulo-sp")
	_ = viper.BindPFlag("scrape.site", cmd.Flags().Lookup("site"))
	_ = viper.BindPFlag("scrape.type", cmd.Flags().Lookup("type"))
	_ = viper.BindPFlag("scrape.cities", cmd.Flags().Lookup("cities"))

	return cmd
}

func runScrape(cmd *cobra.Command, _ []string) error {
	siteName := viper.GetString("scrape.site")
	ptype := model.ProfessionalType(viper.GetString("scrape.type"))
	cities := viper.GetStringSlice("scrape.cities")

	if len(cities) == 0 {
		return common.NewUserError(
			"Pass at least one city slug with --cities, e.g. --cities sao-paulo-sp",
			fmt.Errorf("%w: no cities given", common.ErrMissingConfig))
	}

	site, outPath, err := siteForType(siteName, ptype)
	if err != nil {
		return err
	}

	store, err := storage.NewStore(viper.GetString("scrape.state_db"))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	out, err := scraper.NewWriter(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	client := scraper.New(store, scraper.Config{
		Timeout:     viper.GetDuration("scrape.timeout"),
		MaxWorkers:  viper.GetInt("scrape.workers"),
		MinInterval: time.Duration(viper.GetInt("scrape.rate_ms")) * time.Millisecond,
		PageDelay:   time.Duration(viper.GetInt("scrape.page_delay_ms")) * time.Millisecond,
		MaxPages:    viper.GetInt("scrape.max_pages"),
	})

	slog.Info(cli.FormatTitle("Scraping listings"),
		"site", siteName, "type", ptype, "cities", len(cities), "output", outPath)

	for _, city := range cities {
		if err := client.ScrapeCity(ctx, site, city, out); err != nil {
			return fmt.Errorf("failed to scrape %s: %w", city, err)
		}
	}

	slog.Info(cli.FormatSuccess("Scrape complete"), "output", outPath)
	return nil
}

// siteForType builds the Site for a site name and professional type, and
// the conventional output path the unify stage expects for that pair.
func siteForType(siteName string, ptype model.ProfessionalType) (scraper.Site, string, error) {
	switch ptype {
	case model.TypePsychologist, model.TypePsychiatrist, model.TypePsychotherapist:
	default:
		return nil, "", common.NewUserError(
			"Use --type psicologo, psiquiatra or psicoterapeuta",
			fmt.Errorf("%w: unknown professional type %q", common.ErrInvalidConfig, ptype))
	}

	switch siteName {
	case string(model.SourceDoctoralia):
		if ptype == model.TypePsychotherapist {
			return nil, "", common.NewUserError(
				"Scrape psicoterapeutas from boaconsulta instead",
				fmt.Errorf("%w: doctoralia has no psicoterapeuta listing", common.ErrInvalidConfig))
		}
		dir := viper.GetString("paths.doctoralia_dir")
		name := map[model.ProfessionalType]string{
			model.TypePsychologist: "doctoralia_psicologos.csv",
			model.TypePsychiatrist: "doctoralia_psiquiatras.csv",
		}[ptype]
		return scraper.Doctoralia{Specialty: string(ptype)}, filepath.Join(dir, name), nil

	case string(model.SourceBoaConsulta):
		dir := viper.GetString("paths.boaconsulta_dir")
		// BoaConsulta uses plural specialty path segments.
		specialty := map[model.ProfessionalType]string{
			model.TypePsychologist:    "psicologos",
			model.TypePsychiatrist:    "psiquiatras",
			model.TypePsychotherapist: "psicoterapeutas",
		}[ptype]
		return scraper.BoaConsulta{Specialty: specialty},
			filepath.Join(dir, specialty+"_boaconsulta.csv"), nil
	}

	return nil, "", common.NewUserError(
		"Use --site doctoralia or --site boaconsulta",
		fmt.Errorf("%w: unknown site %q", common.ErrInvalidConfig, siteName))
}
