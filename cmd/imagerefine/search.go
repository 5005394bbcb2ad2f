package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kestrel-labs/imagerefine/internal/scheduler"
	"github.com/kestrel-labs/imagerefine/pkg/config"
	"github.com/kestrel-labs/imagerefine/pkg/logging"
	"github.com/kestrel-labs/imagerefine/pkg/metadata"
	"github.com/kestrel-labs/imagerefine/pkg/metrics"
	"github.com/kestrel-labs/imagerefine/pkg/session"
)

// SearchCmd runs an iterative image-refinement search (spec §4.H).
type SearchCmd struct {
	Prompt string `arg:"" help:"The user prompt to refine."`

	ConfigFile string `help:"YAML config file path." type:"existingfile" name:"config-file" short:"c"`
	Profile    string `help:"Named profile to apply from the config file." name:"profile"`

	BeamWidth       int     `help:"Override beam width (N)." name:"beam-width"`
	Survivors       int     `help:"Override survivor count (M)." name:"survivors"`
	MaxIterations   int     `help:"Override max iterations (I)." name:"max-iterations"`
	Alpha           float64 `help:"Override alignment/aesthetic weight." name:"alpha"`
	EnsembleSize    int     `help:"Override VLM ensemble ballot size (k)." name:"ensemble-size"`
	Style           string  `help:"Override cold-start style seed." name:"style"`
	Descriptiveness string  `help:"Override cold-start descriptiveness seed." name:"descriptiveness"`

	OutputRoot string `help:"Override the session output root directory." name:"output-root" type:"path"`
	Format     string `help:"Summary output format." enum:",table,json" name:"format" short:"f"`

	MetricsFile string        `help:"Write Prometheus-format session metrics to this file." name:"metrics-file" type:"path"`
	Timeout     time.Duration `help:"Overall search timeout." default:"30m"`
}

func (s *SearchCmd) Run() error {
	configureLogging()

	overrides := &config.Config{
		Search: config.SearchConfig{
			BeamWidth:       s.BeamWidth,
			Survivors:       s.Survivors,
			MaxIterations:   s.MaxIterations,
			Alpha:           s.Alpha,
			EnsembleSize:    s.EnsembleSize,
			Style:           s.Style,
			Descriptiveness: s.Descriptiveness,
		},
		Output: config.OutputConfig{
			Root:   s.OutputRoot,
			Format: s.Format,
		},
	}

	cfg, err := loadConfig(s.ConfigFile, s.Profile, overrides)
	if err != nil {
		return err
	}

	llm, image, vlm, err := buildProviders(cfg.Providers)
	if err != nil {
		return err
	}

	coordinator, err := buildGPUCoordinator(cfg.GPU)
	if err != nil {
		return err
	}

	refiner := buildModerationRefiner(cfg.Moderation, llm)

	now := time.Now()
	sessionID := session.NewSessionID(now)
	paths := session.NewPaths(cfg.Output.Root, now, sessionID)

	doc := session.New(sessionID, s.Prompt, session.Config{
		BeamWidth:     cfg.Search.BeamWidth,
		Survivors:     cfg.Search.Survivors,
		MaxIterations: cfg.Search.MaxIterations,
		Alpha:         cfg.Search.Alpha,
		EnsembleSize:  cfg.Search.EnsembleSize,
		RankingMode:   rankingMode(cfg.Search.RankingMode),
	})

	tracker := metadata.New(paths, doc)
	if err := tracker.Initialize(); err != nil {
		return fmt.Errorf("initialize session %s: %w", sessionID, err)
	}
	defer tracker.Close()

	engine := scheduler.New(llm, image, vlm, coordinator, tracker, refiner, sessionID, scheduler.Config{
		BeamWidth:            cfg.Search.BeamWidth,
		Survivors:            cfg.Search.Survivors,
		MaxIterations:        cfg.Search.MaxIterations,
		Alpha:                cfg.Search.Alpha,
		EnsembleSize:         cfg.Search.EnsembleSize,
		MaxFanout:            cfg.Search.MaxFanout,
		Style:                cfg.Search.Style,
		Descriptiveness:      cfg.Search.Descriptiveness,
		ModerationMaxRetries: cfg.Moderation.MaxRetries,
	})

	ctx, cancel := s.setupContext()
	defer cancel()

	result, runErr := engine.Run(ctx, s.Prompt)
	if result == nil {
		result = tracker.Snapshot()
	}

	if s.MetricsFile != "" {
		if mErr := writeSessionMetrics(result, s.MetricsFile); mErr != nil {
			slog.Warn("failed to write session metrics", "error", mErr)
		}
	}

	if err := printSession(result, cfg.Output.Format); err != nil {
		return err
	}

	if runErr != nil {
		return fmt.Errorf("search session %s: %w", sessionID, runErr)
	}
	return nil
}

// setupContext creates a context with a timeout and signal-driven
// cancellation. The returned cancel func must be called to avoid
// leaking the timer and signal notification.
func (s *SearchCmd) setupContext() (context.Context, context.CancelFunc) {
	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(baseCtx, s.Timeout)
	return ctx, func() {
		stop()
		cancel()
	}
}

func rankingMode(s string) session.RankingMode {
	if s == "score" {
		return session.RankingModeScore
	}
	return session.RankingModeRank
}

func configureLogging() {
	level := logging.ParseLevel("info")
	if CLI.Debug {
		level = logging.ParseLevel("debug")
	}
	logging.Configure(level, CLI.LogFormat, os.Stderr)
}

// printSession renders the final session result to stdout.
func printSession(doc *session.Session, format string) error {
	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	fmt.Printf("session %s: %s\n", doc.SessionID, doc.Status)
	if doc.Error != "" {
		fmt.Printf("  error: %s\n", doc.Error)
	}
	fmt.Printf("  iterations: %d\n", len(doc.Iterations))
	if doc.Winner != nil {
		fmt.Printf("  winner: iteration %d, candidate %s, score %.3f\n",
			doc.Winner.Iteration, doc.Winner.CandidateID, doc.Winner.TotalScore)
	}
	return nil
}

// writeSessionMetrics computes per-session counters from the completed
// document and exports them in Prometheus text format (spec's
// adaptation of the teacher's probe/attempt exporter).
func writeSessionMetrics(doc *session.Session, path string) error {
	m := sessionMetrics(doc)
	exporter := metrics.NewPrometheusExporter(m)
	return os.WriteFile(path, []byte(exporter.Export()), 0o644)
}

func sessionMetrics(doc *session.Session) *metrics.Metrics {
	m := &metrics.Metrics{IterationsRun: int64(len(doc.Iterations))}
	for _, it := range doc.Iterations {
		for _, c := range it.Candidates {
			switch c.Status {
			case session.CandidateFailed:
				m.CandidatesFailed++
			default:
				m.CandidatesGenerated++
			}
			for _, comp := range c.Comparisons {
				if comp.Inferred {
					m.ComparisonsInferred++
				} else {
					m.ComparisonsDirect++
				}
			}
		}
	}
	return m
}
