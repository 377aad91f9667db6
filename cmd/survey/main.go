// cmd/survey/main.go
//
// Entry point for the roadmap survey. Without flags it opens the survey
// form in the terminal for the current directory; with -serve it exposes
// the same survey over HTTP.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/roadmap-survey/internal/config"
	"github.com/kingrea/roadmap-survey/internal/logbook"
	"github.com/kingrea/roadmap-survey/internal/logging"
	"github.com/kingrea/roadmap-survey/internal/metrics"
	"github.com/kingrea/roadmap-survey/internal/roadmap"
	"github.com/kingrea/roadmap-survey/internal/server"
	"github.com/kingrea/roadmap-survey/internal/sink"
	"github.com/kingrea/roadmap-survey/internal/survey"
	"github.com/kingrea/roadmap-survey/internal/tui"
)

// CLI flags parsed from command line.
type cliFlags struct {
	Dir     string
	Serve   bool
	Version bool
}

// version is set at build time.
var version = "dev"

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags

	fs := flag.NewFlagSet("survey", flag.ContinueOnError)
	fs.StringVar(&flags.Dir, "dir", ".", "project directory holding .survey/")
	fs.BoolVar(&flags.Serve, "serve", false, "serve the survey over HTTP instead of the terminal form")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Println(version)
		return nil
	}

	projectDir, err := filepath.Abs(flags.Dir)
	if err != nil {
		return fmt.Errorf("resolve project dir: %w", err)
	}
	if err := config.InitSurveyDir(projectDir); err != nil {
		return fmt.Errorf("initialize %s: %w", config.SurveyDir, err)
	}
	cfg, err := config.Load(projectDir)
	if err != nil {
		return err
	}
	variant, err := survey.ParseVariant(cfg.Variant())
	if err != nil {
		return err
	}
	seed, err := roadmap.ResolveSeed(cfg.Project.Survey.Seed, cfg.ProjectDir)
	if err != nil {
		return err
	}
	lb, err := logbook.New(cfg.JourneyLogPath())
	if err != nil {
		return fmt.Errorf("open journey log: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	responses, err := sink.Open(ctx, cfg.Sink())
	if err != nil {
		return err
	}
	if closer, ok := responses.(io.Closer); ok {
		defer closer.Close()
	}

	if flags.Serve {
		return serve(ctx, cfg, server.Deployment{
			Variant: variant,
			Title:   cfg.Project.Survey.Title,
			Seed:    seed,
			Sink:    responses,
		}, lb)
	}
	return runForm(ctx, tui.Params{
		Variant:   variant,
		Title:     cfg.Project.Survey.Title,
		Seed:      seed,
		Submitter: survey.NewSubmitter(variant, responses, survey.WithLogbook(lb)),
		Logbook:   lb,
	})
}

func runForm(ctx context.Context, params tui.Params) error {
	p := tea.NewProgram(
		tui.NewApp(params, tui.WithContext(ctx)),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run survey form: %w", err)
	}
	return nil
}

func serve(ctx context.Context, cfg *config.Config, deployment server.Deployment, lb *logbook.Logbook) error {
	logger, err := logging.New(cfg.ProjectDir, "server")
	if err != nil {
		return err
	}
	defer logger.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	srv := server.NewServer(server.SettingsFromConfig(cfg), deployment,
		server.WithLogger(logger),
		server.WithLogbook(lb),
		server.WithMetrics(metrics.New(reg)),
		server.WithGatherer(reg),
	)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("survey API listening on %s (logs: %s)\n", srv.BaseURL(), logger.Path())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
