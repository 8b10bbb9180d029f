package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/location-analysis/internal/adapter/mapbox"
	"github.com/couchcryptid/location-analysis/internal/analysis"
	"github.com/couchcryptid/location-analysis/internal/catalog"
	"github.com/couchcryptid/location-analysis/internal/domain"
	"github.com/couchcryptid/location-analysis/internal/observability"
)

// options are the resolved flag and environment values.
type options struct {
	Catalog       string        `mapstructure:"catalog"`
	Input         string        `mapstructure:"input"`
	Format        string        `mapstructure:"format"`
	Type          string        `mapstructure:"type"`
	Headers       bool          `mapstructure:"headers"`
	AddressColumn string        `mapstructure:"address-column"`
	LatColumn     string        `mapstructure:"lat-column"`
	LonColumn     string        `mapstructure:"lon-column"`
	Concurrency   int           `mapstructure:"concurrency"`
	MapboxToken   string        `mapstructure:"mapbox-token"`
	MapboxTimeout time.Duration `mapstructure:"mapbox-timeout"`
	Verbose       bool          `mapstructure:"verbose"`
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("LOCATE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "locate",
		Short:         "Analyze locations against map layers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("catalog", "layers.yaml", "Layer catalog file")
	root.PersistentFlags().StringP("format", "f", "json", "Output format: json or yaml")
	root.PersistentFlags().BoolP("verbose", "v", false, "Log progress to stderr")

	root.AddCommand(newAnalyzeCmd(v), newLayersCmd(v))
	return root
}

func newAnalyzeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a CSV of locations and print the report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := loadOptions(v, cmd)
			if err != nil {
				return err
			}
			return runAnalyze(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringP("input", "i", "-", "CSV file to analyze, - for stdin")
	f.String("type", string(domain.LocationTypeLatLon), "Location type: latlon or address")
	f.Bool("headers", true, "First row holds column names")
	f.String("address-column", "", "Address column name or zero-based index")
	f.String("lat-column", "", "Latitude column name or zero-based index")
	f.String("lon-column", "", "Longitude column name or zero-based index")
	f.Int("concurrency", analysis.DefaultMaxConcurrentQueries, "Concurrent layer queries")
	f.String("mapbox-token", "", "Mapbox access token for address geocoding")
	f.Duration("mapbox-timeout", 5*time.Second, "Mapbox request timeout")
	return cmd
}

func newLayersCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "layers",
		Short: "List the catalog's analysis layers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := loadOptions(v, cmd)
			if err != nil {
				return err
			}
			defs, err := loadDefinitions(opts.Catalog)
			if err != nil {
				return err
			}
			layers := make([]domain.AnalysisLayer, len(defs))
			for i, def := range defs {
				layers[i] = domain.NewAnalysisLayer(def, i)
			}
			return write(cmd.OutOrStdout(), opts.Format, map[string]any{"layers": layers})
		},
	}
}

func loadOptions(v *viper.Viper, cmd *cobra.Command) (options, error) {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return options{}, fmt.Errorf("bind flags: %w", err)
	}
	var opts options
	if err := v.Unmarshal(&opts); err != nil {
		return options{}, fmt.Errorf("read options: %w", err)
	}
	if opts.Format != "json" && opts.Format != "yaml" {
		return options{}, fmt.Errorf("unknown format %q", opts.Format)
	}
	return opts, nil
}

func (o options) settings() domain.LocationSettings {
	return domain.LocationSettings{
		Type:       domain.LocationType(o.Type),
		HasHeaders: o.Headers,
		Address:    parseColumn(o.AddressColumn),
		Latitude:   parseColumn(o.LatColumn),
		Longitude:  parseColumn(o.LonColumn),
	}
}

// parseColumn treats a non-negative integer as an index and anything else as
// a header name.
func parseColumn(s string) domain.Column {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil && i >= 0 {
		return domain.Column{Index: &i}
	}
	return domain.Column{Name: s}
}

func loadDefinitions(path string) ([]domain.LayerDefinition, error) {
	c, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	return c.Definitions()
}

func runAnalyze(cmd *cobra.Command, opts options) error {
	ctx := cmd.Context()
	logger := newCLILogger(cmd.ErrOrStderr(), opts.Verbose)
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsWithRegistry(reg)

	settings := opts.settings()
	if err := settings.Validate(); err != nil {
		return err
	}

	in, closeIn, err := openInput(cmd.InOrStdin(), opts.Input)
	if err != nil {
		return err
	}
	defer closeIn()

	c, err := catalog.Load(opts.Catalog)
	if err != nil {
		return err
	}
	opened, err := c.Open(ctx)
	if err != nil {
		return err
	}
	defer opened.Close() //nolint:errcheck // read-only sources

	var geocoder domain.Geocoder
	if opts.MapboxToken != "" {
		client := mapbox.NewClient(opts.MapboxToken, opts.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, 1000, metrics)
	}

	analyzer, err := analysis.NewAnalyzer(opened.Layers, analysis.NewInspector(opts.Concurrency, logger, metrics), geocoder, logger, metrics)
	if err != nil {
		return err
	}
	report, err := analyzer.AnalyzeCSV(ctx, in, settings)
	if err != nil {
		return err
	}
	if opts.Verbose {
		logCounters(logger, reg)
	}
	return write(cmd.OutOrStdout(), opts.Format, report)
}

func openInput(stdin io.Reader, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func write(w io.Writer, format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func newCLILogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// logCounters writes every non-zero counter of the run to the logger.
func logCounters(logger *slog.Logger, g prometheus.Gatherer) {
	families, err := g.Gather()
	if err != nil {
		logger.Warn("gather metrics failed", "error", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			c := m.GetCounter()
			if c == nil || c.GetValue() == 0 {
				continue
			}
			attrs := []any{"metric", mf.GetName(), "value", c.GetValue()}
			for _, lp := range m.GetLabel() {
				attrs = append(attrs, lp.GetName(), lp.GetValue())
			}
			logger.Info("counter", attrs...)
		}
	}
}
