package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/metrics"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/report"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/solver"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/study"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/studyd"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/sweep"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/config"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/logger"
	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		logger.Error("tradestudy failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// run executes one sweep and writes its outputs. With a listen address set it
// then serves the finished table until ctx is done.
func run(ctx context.Context, args []string, stdout, logOut io.Writer) error {
	fs := pflag.NewFlagSet("tradestudy", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	v, err := config.NewViper(fs)
	if err != nil {
		return err
	}
	settings, err := config.LoadSettings(v)
	if err != nil {
		return err
	}
	logger.SetDefault(logger.NewFormat(settings.LogFormat, settings.LogLevel, logOut))

	s, err := loadStudy(settings.StudyFile)
	if err != nil {
		return err
	}
	if dump, _ := fs.GetBool("print-study"); dump {
		text, err := config.MarshalStudyYAML(s)
		if err != nil {
			return err
		}
		_, err = io.WriteString(stdout, text)
		return err
	}
	for _, line := range report.SummaryLines(s) {
		logger.Info(line)
	}
	catalog, err := study.DefaultCatalog(s)
	if err != nil {
		return err
	}

	opts := solver.DefaultOptions()
	opts.MaxIterations = settings.SolverMaxIterations
	evaluator, err := sweep.NewEvaluator(s, opts)
	if err != nil {
		return err
	}
	evaluator.WithRetry(sweep.RetryPolicy{MaxRetries: settings.SolverRetries, Growth: 2})
	collector := metrics.NewCollector()
	runner := sweep.NewRunner(evaluator.Evaluate, sweep.Options{
		Workers:     settings.Workers,
		CellTimeout: settings.CellTimeout,
		FailFast:    settings.FailFast,
	}, collector)

	rep, runErr := runner.Run(ctx, catalog)
	if rep == nil {
		return runErr
	}
	if err := writeOutputs(rep, s, settings); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	summary := collector.GetSummary()
	if agg := summary.CellDuration; agg != nil {
		logger.Info("cell durations", "count", agg.Count, "mean_s", agg.Mean, "p95_s", agg.P95, "max_s", agg.Max)
	}
	if len(rep.Failures) > 0 {
		logger.Warn("sweep finished with failed cells", "failed", len(rep.Failures), "solved", len(rep.Results))
	}

	if settings.HTTPAddr == "" && settings.GRPCAddr == "" {
		return nil
	}
	store := studyd.NewReportStore()
	if err := store.Put(rep); err != nil {
		return err
	}
	return serve(ctx, settings, store, collector)
}

func loadStudy(path string) (*config.Study, error) {
	if path == "" {
		return config.DefaultStudy()
	}
	return config.LoadStudy(path)
}

// writeOutputs writes whatever the sweep produced, including partial tables
func writeOutputs(rep *sweep.Report, s *config.Study, settings *config.Settings) error {
	if settings.FigurePath != "" {
		if err := report.RenderFigure(rep.Table, s, settings.FigurePath); err != nil {
			return err
		}
		logger.Info("figure written", "path", settings.FigurePath)
	}
	if settings.ReportPath != "" {
		if err := report.WriteJSON(rep, settings.ReportPath); err != nil {
			return err
		}
		logger.Info("report written", "path", settings.ReportPath)
	}
	return nil
}

// serve exposes the finished table until ctx is done
func serve(ctx context.Context, settings *config.Settings, store *studyd.ReportStore, collector *metrics.Collector) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	// TODO: configure TLS for the gRPC and HTTP listeners before exposing them outside localhost.
	var (
		grpcErr = make(chan error, 1)
		httpErr = make(chan error, 1)
	)

	grpcServer := studyd.NewGRPCServer(store)
	if settings.GRPCAddr != "" {
		lis, err := net.Listen("tcp", settings.GRPCAddr)
		if err != nil {
			return fmt.Errorf("failed to listen for gRPC on %s: %w", settings.GRPCAddr, err)
		}
		go func() {
			logger.Info("gRPC server listening", "addr", lis.Addr().String())
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "error", err)
				grpcErr <- err
				stop()
			}
		}()
	}

	var httpSrv *http.Server
	if settings.HTTPAddr != "" {
		httpSrv = &http.Server{
			Addr:              settings.HTTPAddr,
			Handler:           studyd.NewHTTPServer(store, collector.Registry()).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", settings.HTTPAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "error", err)
				httpErr <- err
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.GracefulStop()
	if httpSrv != nil {
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown error", "error", err)
		}
	}

	select {
	case err := <-grpcErr:
		return err
	case err := <-httpErr:
		return err
	default:
		return nil
	}
}
