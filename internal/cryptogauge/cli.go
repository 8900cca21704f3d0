package cryptogauge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

type cliOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	options := &cliOptions{}

	root := &cobra.Command{
		Use:           "cryptogauge",
		Short:         "Dashboard of crypto gauge widgets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(options.logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveWithReload(cmd.Context(), options.configPath)
		},
	}

	root.PersistentFlags().StringVar(&options.configPath, "config", "cryptogauge.yml", "Set config path")
	root.PersistentFlags().StringVar(&options.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCommand(options),
		newValidateConfigCommand(options),
		newFetchCommand(options),
		newDiagnoseCommand(options),
		newVersionCommand(),
	)

	return root
}

func setupLogging(level string) error {
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})))

	return nil
}

func newServeCommand(options *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard, restarting it when the config file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveWithReload(cmd.Context(), options.configPath)
		},
	}
}

func newValidateConfigCommand(options *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config:validate",
		Short: "Check whether the config is valid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := newConfigFromFile(options.configPath); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Config is valid")
			return nil
		},
	}
}

// upstreamConfigForCLI reads the upstream section of the config file when
// there is one, otherwise falls back to the defaults and GAUGE_API_TOKEN.
func upstreamConfigForCLI(configPath string) (*upstreamConfig, error) {
	config, err := newConfigFromFile(configPath)
	if err == nil {
		return &config.Upstream, nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	upstream := newConfig().Upstream
	upstream.BearerToken = os.Getenv("GAUGE_API_TOKEN")

	return &upstream, nil
}

func newFetchCommand(options *cliOptions) *cobra.Command {
	var (
		defaultAngle float64
		maxAngle     float64
		variant      string
		preset       string
		printFigure  bool
	)

	cmd := &cobra.Command{
		Use:   "fetch <token> <period>",
		Short: "Fetch the gauge data of a token and period and print how it would be drawn",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, period := args[0], args[1]

			upstreamConfig, err := upstreamConfigForCLI(options.configPath)
			if err != nil {
				return err
			}

			style, err := resolveGaugeStyle(gaugeVariant(variant), preset, nil)
			if err != nil {
				return err
			}

			metric, err := newGaugeUpstream(upstreamConfig).fetch(cmd.Context(), token, period)
			if err != nil {
				return fmt.Errorf("fetching gauge data: %w", err)
			}

			out := cmd.OutOrStdout()

			if printFigure {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(buildGaugeFigure(metric, &style, false))
			}

			fmt.Fprintf(out, "Token:              %s\n", token)
			fmt.Fprintf(out, "Period:             %s\n", period)
			fmt.Fprintf(out, "YTD_last:           %s\n", formatGaugeValue(metric.Last))
			fmt.Fprintf(out, "YTD_0_percentile:   %s\n", formatGaugeValue(metric.Percentile0))
			fmt.Fprintf(out, "YTD_100_percentile: %s\n", formatGaugeValue(metric.Percentile100))
			fmt.Fprintf(out, "Arrow angle:        %sdeg\n", formatAngle(arrowAngle(defaultAngle, maxAngle, metric.Last)))

			return nil
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&defaultAngle, "default-rotate-angle", 0, "Arrow angle for a value of 0")
	flags.Float64Var(&maxAngle, "max-rotate-angle", defaultMaxRotateAngle, "Arrow angle for a value of 1")
	flags.StringVar(&variant, "variant", string(gaugeVariantDefault), "Gauge variant (default, gradient-small-bar)")
	flags.StringVar(&preset, "preset", "", "Gauge preset, defaults to the first preset of the variant")
	flags.BoolVar(&printFigure, "figure", false, "Print the figure description as JSON")

	return cmd
}

func newDiagnoseCommand(options *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Check connectivity to the upstream and the state of its credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			upstreamConfig, err := upstreamConfigForCLI(options.configPath)
			if err != nil {
				return err
			}

			runDiagnostic(cmd.OutOrStdout(), upstreamConfig)
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "CryptoGauge %s (%s)\n", buildVersion, runtime.Version())
		},
	}
}
