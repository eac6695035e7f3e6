package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ghalamif/AegisMaint/internal/adapters/console"
	"github.com/ghalamif/AegisMaint/internal/adapters/journal"
	"github.com/ghalamif/AegisMaint/internal/adapters/report"
	"github.com/ghalamif/AegisMaint/internal/adapters/sqlitejournal"
	"github.com/ghalamif/AegisMaint/internal/experience"
	"github.com/ghalamif/AegisMaint/internal/ports"
	"github.com/ghalamif/AegisMaint/pkg/aegismaint"
)

const envPrefix = "AEGIS_MAINT"

// newRootCmd builds the command tree. Every flag can also be set through an
// AEGIS_MAINT_* environment variable, e.g. AEGIS_MAINT_CONFIG or
// AEGIS_MAINT_STATS_URL.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "aegis-maint",
		Short: "Self-learning predictive maintenance agent",
		Long: `aegis-maint watches equipment telemetry, scores its health, picks a
maintenance action and learns from the reward of every action it takes.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "./data/config.yaml", "Path to agent configuration file")
	bindFlags(v, "", root.PersistentFlags())

	root.AddCommand(
		newRunCmd(v),
		newValidateCmd(v),
		newScenarioCmd(v),
		newReportCmd(v),
		newStatsCmd(v),
	)
	return root
}

// bindFlags exposes each flag to viper as prefix.name.
func bindFlags(v *viper.Viper, prefix string, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		key := f.Name
		if prefix != "" {
			key = prefix + "." + f.Name
		}
		if err := v.BindPFlag(key, f); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", key, err))
		}
	})
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the agent using the provided config",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := aegismaint.LoadConfig(v.GetString("config"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			opts := []aegismaint.AgentOption{aegismaint.WithMaxTicks(v.GetInt("run.ticks"))}
			if v.GetBool("run.dashboard") {
				channels, err := cfg.ChannelSet()
				if err != nil {
					return err
				}
				opts = append(opts, aegismaint.WithOnTick(console.NewDashboard(cmd.OutOrStdout(), channels).OnTick))
			}

			agent, err := aegismaint.NewAgent(cfg, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return agent.Run(ctx)
		},
	}
	cmd.Flags().Bool("dashboard", false, "Render every tick to the terminal")
	cmd.Flags().Int("ticks", 0, "Stop after this many ticks (0 runs until interrupted)")
	bindFlags(v, "run", cmd.Flags())
	return cmd
}

func newValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a config file without starting the agent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := v.GetString("config")
			if _, err := aegismaint.LoadConfig(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config %s looks good\n", path)
			return nil
		},
	}
}

func newScenarioCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario NAME",
		Short: "Feed a generated scenario through an in-memory agent and print its summary",
		Long: `Runs one of the built-in scenarios (normal_operation, gradual_degradation,
sudden_failure, multiple_issues, seasonal_pattern) as fast as the agent can
consume it, with no persistence, then prints the decision summary as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := aegismaint.DefaultConfig()
			cfg.Source.Kind = aegismaint.SourceScenario
			cfg.Source.Scenario.Name = args[0]
			cfg.Source.Scenario.Seed = v.GetUint64("scenario.seed")
			if d := v.GetDuration("scenario.duration"); d > 0 {
				cfg.Source.Scenario.Duration = d
			}
			cfg.Effector.FailureRate = v.GetFloat64("scenario.failure-rate")

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			agent, err := aegismaint.NewAgent(cfg, aegismaint.WithHTTPServer(false), aegismaint.WithLogger(logger))
			if err != nil {
				return err
			}
			if err := agent.Run(cmd.Context()); err != nil {
				return err
			}

			if err := printJSON(cmd.OutOrStdout(), agent.Summary()); err != nil {
				return err
			}
			if out := v.GetString("scenario.plot"); out != "" {
				if err := report.WriteFile(out, agent.Experiences()); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "learning report written to %s\n", out)
			}
			return nil
		},
	}
	cmd.Flags().Uint64("seed", 0, "Seed for the scenario generator (0 is time-seeded)")
	cmd.Flags().Duration("duration", 0, "Simulated duration (default 24h at one reading per minute)")
	cmd.Flags().Float64("failure-rate", 0, "Share of actions the simulated effector fails")
	cmd.Flags().String("plot", "", "Write the learning report PNG to this path")
	bindFlags(v, "scenario", cmd.Flags())
	return cmd
}

func newReportCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Replay the configured experience journal and plot it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := aegismaint.LoadConfig(v.GetString("config"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			j, err := openJournal(cfg)
			if err != nil {
				return err
			}
			defer j.Close()

			store := experience.NewStore()
			n, err := store.Replay(j)
			if err != nil {
				return fmt.Errorf("replay journal: %w", err)
			}

			out := v.GetString("report.out")
			if err := report.WriteFile(out, store.Experiences()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "plotted %d experiences to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().String("out", "learning_report.png", "Output PNG path")
	bindFlags(v, "report", cmd.Flags())
	return cmd
}

func openJournal(cfg *aegismaint.Config) (ports.ExperienceJournal, error) {
	switch cfg.Journal.Driver {
	case aegismaint.JournalFile:
		return journal.NewFileJournal(cfg.Journal.Dir)
	case aegismaint.JournalSQLite:
		return sqlitejournal.Open(cfg.Journal.Path)
	default:
		return nil, errors.New("report needs a file or sqlite journal")
	}
}

func newStatsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Poll the Prometheus metrics endpoint and print live counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url := v.GetString("stats.url")
			interval := v.GetDuration("stats.interval")
			if interval <= 0 {
				interval = 2 * time.Second
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Streaming metrics from %s (Ctrl+C to stop)\n", url)
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					line, err := metricsSnapshot(ctx, url)
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "stats error: %v\n", err)
						continue
					}
					fmt.Fprintf(out, "[%s] %s\n", time.Now().Format(time.RFC3339), line)
				}
			}
		},
	}
	cmd.Flags().String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	cmd.Flags().Duration("interval", 2*time.Second, "Refresh interval")
	bindFlags(v, "stats", cmd.Flags())
	return cmd
}

var statsTargets = []struct {
	metric string
	label  string
}{
	{ports.MetricTicks, "ticks"},
	{ports.MetricStoreSize, "experiences"},
	{ports.MetricLastReward, "last_reward"},
	{ports.MetricSeverityScore, "severity"},
	{ports.MetricQueueLength, "queue"},
	{ports.MetricJournalSize, "journal_bytes"},
}

func metricsSnapshot(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	return formatSnapshot(resp.Body)
}

// formatSnapshot reads the Prometheus text format and prints the agent's
// headline series. Missing series read 0.
func formatSnapshot(r io.Reader) (string, error) {
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(statsTargets))
	for _, t := range statsTargets {
		var value float64
		if mf, ok := families[t.metric]; ok && len(mf.GetMetric()) > 0 {
			m := mf.GetMetric()[0]
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			}
		}
		parts = append(parts, fmt.Sprintf("%s=%g", t.label, value))
	}
	return strings.Join(parts, " "), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
