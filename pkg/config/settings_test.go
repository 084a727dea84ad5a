package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("tradestudy", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadSettingsDefaults(t *testing.T) {
	v, err := NewViper(newFlagSet(t))
	require.NoError(t, err)

	s, err := LoadSettings(v)
	require.NoError(t, err)
	assert.Equal(t, "", s.StudyFile)
	assert.Equal(t, "reserve_requirement_plot_01.svg", s.FigurePath)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, "text", s.LogFormat)
	assert.Positive(t, s.Workers)
	assert.Equal(t, 2*time.Minute, s.CellTimeout)
	assert.False(t, s.FailFast)
	assert.Equal(t, 60, s.SolverMaxIterations)
	assert.Equal(t, 1, s.SolverRetries)
}

func TestLoadSettingsFlags(t *testing.T) {
	fs := newFlagSet(t,
		"--workers=3",
		"--cell-timeout=10s",
		"--fail-fast",
		"--log-level=DEBUG",
		"--figure=out.pdf",
	)
	v, err := NewViper(fs)
	require.NoError(t, err)

	s, err := LoadSettings(v)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Workers)
	assert.Equal(t, 10*time.Second, s.CellTimeout)
	assert.True(t, s.FailFast)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, "out.pdf", s.FigurePath)
}

func TestLoadSettingsEnvironment(t *testing.T) {
	t.Setenv("TRADESTUDY_WORKERS", "7")
	t.Setenv("TRADESTUDY_LOG_FORMAT", "json")

	v, err := NewViper(newFlagSet(t))
	require.NoError(t, err)

	s, err := LoadSettings(v)
	require.NoError(t, err)
	assert.Equal(t, 7, s.Workers)
	assert.Equal(t, "json", s.LogFormat)
}

func TestLoadSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 2\nfail_fast: true\n"), 0o644))

	v, err := NewViper(newFlagSet(t, "--config="+path))
	require.NoError(t, err)

	s, err := LoadSettings(v)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Workers)
	assert.True(t, s.FailFast)
}

func TestLoadSettingsMissingFile(t *testing.T) {
	_, err := NewViper(newFlagSet(t, "--config="+filepath.Join(t.TempDir(), "absent.yaml")))
	require.Error(t, err)
}

func TestLoadSettingsInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"Zero workers", []string{"--workers=0"}},
		{"Negative timeout", []string{"--cell-timeout=-1s"}},
		{"Bad log level", []string{"--log-level=verbose"}},
		{"Bad log format", []string{"--log-format=xml"}},
		{"Bad figure extension", []string{"--figure=plot.png"}},
		{"Zero solver budget", []string{"--solver-max-iterations=0"}},
		{"Negative solver retries", []string{"--solver-retries=-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewViper(newFlagSet(t, tt.args...))
			require.NoError(t, err)
			if _, err := LoadSettings(v); err == nil {
				t.Fatalf("expected error for %v", tt.args)
			}
		})
	}
}

func TestLoadStudyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "study.yaml")
	require.NoError(t, os.WriteFile(path, DefaultStudyYAML(), 0o644))

	study, err := LoadStudy(path)
	require.NoError(t, err)
	assert.Len(t, study.Configurations, 9)

	_, err = LoadStudy(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
