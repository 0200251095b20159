package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/climate-trigger-map/internal/adapter/dataset"
	"github.com/couchcryptid/climate-trigger-map/internal/config"
	"github.com/couchcryptid/climate-trigger-map/internal/mapdef"
	"github.com/couchcryptid/climate-trigger-map/internal/observability"
	"github.com/couchcryptid/climate-trigger-map/internal/pipeline"
	"github.com/couchcryptid/climate-trigger-map/internal/render"
)

type options struct {
	triggers  string
	results   string
	provinces string
	nameField string
	maps      string
	output    string
	logLevel  string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "rendermap",
		Short:         "Render climate trigger and attributable mortality maps of Spain",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.triggers, "triggers", "", "trigger values CSV (default $TRIGGER_VALUES_PATH)")
	flags.StringVar(&opts.results, "results", "", "adjusted results CSV (default $ADJUSTED_RESULTS_PATH)")
	flags.StringVar(&opts.provinces, "provinces", "", "province polygons, .shp or .geojson (default $PROVINCES_PATH)")
	flags.StringVar(&opts.nameField, "name-field", "", "province name attribute (default $PROVINCE_NAME_FIELD)")
	flags.StringVar(&opts.maps, "maps", "", "YAML map definitions overriding the built-in ones")
	flags.StringVarP(&opts.output, "output", "o", "-", "output file, - for stdout")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level for progress messages on stderr")

	root.AddCommand(newTriggersCmd(opts), newMortalityCmd(opts), newPeriodsCmd(opts))
	return root
}

func newTriggersCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "triggers",
		Short: "Render the trigger value map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := opts.prepare(cmd, false)
			if err != nil {
				return err
			}
			art, err := p.TriggerMap(cmd.Context())
			if err != nil {
				return err
			}
			return opts.write(cmd.OutOrStdout(), art)
		},
	}
}

func newMortalityCmd(opts *options) *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "mortality",
		Short: "Render the attributable mortality map for one period",
		Long:  "Render the attributable mortality map. Without --year and --month the latest period is used.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := opts.prepare(cmd, true)
			if err != nil {
				return err
			}
			ctrl, err := p.Controller()
			if err != nil {
				return err
			}

			sel := ctrl.Default()
			if cmd.Flags().Changed("year") {
				sel.Year = year
			}
			if cmd.Flags().Changed("month") {
				sel.Month = month
			}
			art, err := ctrl.Select(cmd.Context(), sel.Year, sel.Month)
			if err != nil {
				return err
			}
			return opts.write(cmd.OutOrStdout(), art)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year to show (default latest)")
	cmd.Flags().IntVar(&month, "month", 0, "month to show, 1-12 (default latest in the year)")
	return cmd
}

func newPeriodsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "periods",
		Short: "List the selectable years and months as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := opts.prepare(cmd, true)
			if err != nil {
				return err
			}
			periods, err := p.Periods()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(periods)
		},
	}
}

// prepare loads the datasets named by flags or the environment. The adjusted
// results are skipped unless withResults is set.
func (o *options) prepare(cmd *cobra.Command, withResults bool) (*pipeline.Pipeline, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	paths := dataset.Paths{
		Triggers:  override(o.triggers, cfg.TriggerValuesPath),
		Provinces: override(o.provinces, cfg.ProvincesPath),
		NameField: override(o.nameField, cfg.ProvinceNameField),
	}
	if withResults {
		paths.Results = override(o.results, cfg.AdjustedResultsPath)
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: observability.ParseLevel(o.logLevel)}))

	defs, err := mapdef.Load(override(o.maps, cfg.MapDefinitionsPath))
	if err != nil {
		return nil, err
	}
	renderer, err := render.NewRenderer()
	if err != nil {
		return nil, err
	}

	// Nothing serves /metrics here, so the collectors stay unregistered.
	p := pipeline.New(dataset.NewFileSource(paths, logger), renderer, defs, nil, logger, observability.NewMetricsForTesting())
	if err := p.Prepare(cmd.Context()); err != nil {
		return nil, err
	}
	return p, nil
}

func (o *options) write(stdout io.Writer, art *render.Artifact) error {
	if o.output == "-" {
		_, err := art.WriteTo(stdout)
		return err
	}
	f, err := os.Create(o.output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if _, err := art.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", o.output, err)
	}
	return f.Close()
}

func override(flag, env string) string {
	if flag != "" {
		return flag
	}
	return env
}
