package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/config"
	"github.com/spf13/pflag"
)

func TestRunRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"log level", []string{"--log-level", "verbose", "--figure", ""}},
		{"workers", []string{"--workers", "0", "--figure", ""}},
		{"figure format", []string{"--figure", "out.png"}},
		{"unknown flag", []string{"--no-such-flag"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := run(context.Background(), tt.args, io.Discard, io.Discard); err == nil {
				t.Fatalf("expected an error for %v", tt.args)
			}
		})
	}
}

func TestRunHelp(t *testing.T) {
	err := run(context.Background(), []string{"--help"}, io.Discard, io.Discard)
	if !errors.Is(err, pflag.ErrHelp) {
		t.Fatalf("expected pflag.ErrHelp, got %v", err)
	}
}

func TestRunMissingStudyFile(t *testing.T) {
	err := run(context.Background(), []string{"--study", filepath.Join(t.TempDir(), "missing.yaml"), "--figure", ""}, io.Discard, io.Discard)
	if err == nil {
		t.Fatalf("expected an error for a missing study file")
	}
}

func TestRunPrintStudy(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"--print-study"}, &out, io.Discard); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	s, err := config.ParseStudyYAMLString(out.String())
	if err != nil {
		t.Fatalf("printed study does not parse: %v\n%s", err, out.String())
	}
	if len(s.Configurations) == 0 || len(s.ReservePolicies) == 0 {
		t.Fatalf("printed study is missing tables:\n%s", out.String())
	}
}

func TestRunWritesOutputs(t *testing.T) {
	if testing.Short() {
		t.Skip("solves the full default study")
	}
	dir := t.TempDir()
	figure := filepath.Join(dir, "reserve.svg")
	reportPath := filepath.Join(dir, "reserve.json")
	var logs bytes.Buffer

	err := run(context.Background(), []string{
		"--figure", figure,
		"--report", reportPath,
		"--workers", "4",
		"--log-format", "json",
	}, io.Discard, &logs)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, logs.String())
	}

	if info, err := os.Stat(figure); err != nil || info.Size() == 0 {
		t.Fatalf("expected a figure at %s: %v", figure, err)
	}
	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid report json: %v", err)
	}
	if doc["solved"] != float64(12) {
		t.Fatalf("expected 12 solved cells, got %v", doc["solved"])
	}
	if !strings.Contains(logs.String(), `"msg":"sweep finished"`) {
		t.Fatalf("expected a sweep finished log line")
	}
}
