package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment prefix for runtime settings (TRADESTUDY_WORKERS, ...)
const EnvPrefix = "TRADESTUDY"

// Settings holds the runtime knobs of a sweep, as opposed to the study tables
type Settings struct {
	StudyFile           string
	FigurePath          string
	ReportPath          string
	LogLevel            string
	LogFormat           string
	Workers             int
	CellTimeout         time.Duration
	FailFast            bool
	SolverMaxIterations int
	SolverRetries       int
	GRPCAddr            string
	HTTPAddr            string
}

// settingKeys maps viper keys to their flag names
var settingKeys = map[string]string{
	"study":                 "study",
	"figure":                "figure",
	"report":                "report",
	"log_level":             "log-level",
	"log_format":            "log-format",
	"workers":               "workers",
	"cell_timeout":          "cell-timeout",
	"fail_fast":             "fail-fast",
	"solver_max_iterations": "solver-max-iterations",
	"solver_retries":        "solver-retries",
	"grpc_addr":             "grpc-addr",
	"http_addr":             "http-addr",
}

// RegisterFlags declares the sweep flags on fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "optional settings file (yaml, json or toml)")
	fs.String("study", "", "study tables YAML (default: built-in reserve-requirement study)")
	fs.Bool("print-study", false, "write the effective study tables as YAML to stdout and exit")
	fs.String("figure", "reserve_requirement_plot_01.svg", "figure output path (.svg or .pdf); empty disables the figure")
	fs.String("report", "", "JSON report output path; empty disables the report")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-format", "text", "log format (text, json)")
	fs.Int("workers", runtime.GOMAXPROCS(0), "number of cells solved concurrently")
	fs.Duration("cell-timeout", 2*time.Minute, "wall-clock budget per (configuration, reserve policy) cell")
	fs.Bool("fail-fast", false, "abort the sweep on the first failed cell")
	fs.Int("solver-max-iterations", 60, "outer iteration budget of the solver")
	fs.Int("solver-retries", 1, "re-solve a diverged cell this many times, doubling the iteration budget each time")
	fs.String("grpc-addr", "", "serve the finished table over gRPC on this address")
	fs.String("http-addr", "", "serve the finished table, /metrics and /healthz over HTTP on this address")
}

// NewViper builds a viper instance bound to fs and to TRADESTUDY_* environment variables.
// If the --config flag is set, the named file is read as well.
func NewViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, flag := range settingKeys {
		f := fs.Lookup(flag)
		if f == nil {
			return nil, fmt.Errorf("flag --%s is not registered", flag)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("failed to bind flag --%s: %w", flag, err)
		}
	}

	if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
		v.SetConfigFile(f.Value.String())
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read settings file %s: %w", f.Value.String(), err)
		}
	}
	return v, nil
}

// LoadSettings reads and validates Settings from v
func LoadSettings(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		StudyFile:           v.GetString("study"),
		FigurePath:          v.GetString("figure"),
		ReportPath:          v.GetString("report"),
		LogLevel:            strings.ToLower(v.GetString("log_level")),
		LogFormat:           strings.ToLower(v.GetString("log_format")),
		Workers:             v.GetInt("workers"),
		CellTimeout:         v.GetDuration("cell_timeout"),
		FailFast:            v.GetBool("fail_fast"),
		SolverMaxIterations: v.GetInt("solver_max_iterations"),
		SolverRetries:       v.GetInt("solver_retries"),
		GRPCAddr:            v.GetString("grpc_addr"),
		HTTPAddr:            v.GetString("http_addr"),
	}
	if err := validateSettings(s); err != nil {
		return nil, err
	}
	return s, nil
}

// validateSettings performs validation on the runtime settings
func validateSettings(s *Settings) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[s.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", s.LogLevel)
	}
	if s.LogFormat != "text" && s.LogFormat != "json" {
		return fmt.Errorf("invalid log_format: %s (must be text or json)", s.LogFormat)
	}
	if s.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", s.Workers)
	}
	if s.CellTimeout <= 0 {
		return fmt.Errorf("cell_timeout must be positive, got %s", s.CellTimeout)
	}
	if s.SolverMaxIterations <= 0 {
		return fmt.Errorf("solver_max_iterations must be positive, got %d", s.SolverMaxIterations)
	}
	if s.SolverRetries < 0 {
		return fmt.Errorf("solver_retries must not be negative, got %d", s.SolverRetries)
	}
	if s.FigurePath != "" && !strings.HasSuffix(s.FigurePath, ".svg") && !strings.HasSuffix(s.FigurePath, ".pdf") {
		return fmt.Errorf("figure must end in .svg or .pdf, got %s", s.FigurePath)
	}
	return nil
}
