//go:build integration
// +build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/metrics"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/report"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/solver"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/study"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/studyd"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/sweep"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/config"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/units"
)

func runDefaultSweep(t *testing.T) (*sweep.Report, *metrics.Collector) {
	t.Helper()
	s, err := config.DefaultStudy()
	if err != nil {
		t.Fatalf("DefaultStudy failed: %v", err)
	}
	catalog, err := study.DefaultCatalog(s)
	if err != nil {
		t.Fatalf("DefaultCatalog failed: %v", err)
	}
	evaluator, err := sweep.NewEvaluator(s, solver.DefaultOptions())
	if err != nil {
		t.Fatalf("NewEvaluator failed: %v", err)
	}
	collector := metrics.NewCollector()
	runner := sweep.NewRunner(evaluator.Evaluate, sweep.Options{Workers: 4, CellTimeout: 2 * time.Minute}, collector)

	rep, err := runner.Run(context.Background(), catalog)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	return rep, collector
}

func lbf(t *testing.T, q units.Quantity) float64 {
	t.Helper()
	v, err := q.In(units.PoundForce)
	if err != nil {
		t.Fatalf("convert %s to lbf: %v", q, err)
	}
	return v
}

func TestIntegration_DefaultStudyEndToEnd(t *testing.T) {
	rep, collector := runDefaultSweep(t)

	if len(rep.Failures) != 0 {
		for _, f := range rep.Failures {
			t.Errorf("cell failed: %v", f)
		}
		t.FailNow()
	}
	if !rep.Table.Complete() {
		t.Fatalf("expected a complete table, got %d of %d cells", rep.Table.Len(), rep.Catalog.Len())
	}

	for _, cfg := range rep.Table.Configurations() {
		var prevBattery float64
		for i, policy := range rep.Table.Policies(cfg) {
			rec, ok := rep.Table.Get(study.Key{Configuration: cfg, Policy: policy})
			if !ok {
				t.Fatalf("missing cell %s/%s", cfg, policy)
			}
			out, _ := rec.Outputs()
			mtow, battery := lbf(t, out.MTOW), lbf(t, out.BatteryWeight)
			if !(mtow > battery && battery > 0) {
				t.Fatalf("%s/%s: expected MTOW %f > battery %f > 0", cfg, policy, mtow, battery)
			}
			if out.SPL < 0 || out.SPL > 150 {
				t.Fatalf("%s/%s: SPL %f out of range", cfg, policy, out.SPL)
			}
			// policies are ordered least to most conservative
			if i > 0 && battery < prevBattery*(1-1e-4) {
				t.Fatalf("%s: battery weight decreased from %f to %f under %s", cfg, prevBattery, battery, policy)
			}
			prevBattery = battery
		}
	}

	summary := collector.GetSummary()
	if summary.Outcomes[metrics.OutcomeSolved] != rep.Catalog.Len() {
		t.Fatalf("expected %d solved outcomes, got %v", rep.Catalog.Len(), summary.Outcomes)
	}

	dir := t.TempDir()
	figure := filepath.Join(dir, "reserve_requirement_plot_01.pdf")
	if err := report.RenderFigure(rep.Table, rep.Catalog.Study(), figure); err != nil {
		t.Fatalf("RenderFigure failed: %v", err)
	}
	if info, err := os.Stat(figure); err != nil || info.Size() == 0 {
		t.Fatalf("expected figure at %s: %v", figure, err)
	}

	store := studyd.NewReportStore()
	if err := store.Put(rep); err != nil {
		t.Fatalf("store.Put failed: %v", err)
	}
	srv := httptest.NewServer(studyd.NewHTTPServer(store, collector.Registry()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/table/Tilt%20rotor/FAA_aircraft")
	if err != nil {
		t.Fatalf("GET cell failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var cell map[string]any
	if err := json.Unmarshal(body, &cell); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if cell["status"] != report.StatusSolved {
		t.Fatalf("expected solved cell, got %v", cell["status"])
	}
}

func TestIntegration_SweepIsDeterministic(t *testing.T) {
	first, _ := runDefaultSweep(t)
	second, _ := runDefaultSweep(t)

	for _, key := range first.Catalog.Keys() {
		a, _ := first.Table.Get(key)
		b, _ := second.Table.Get(key)
		oa, _ := a.Outputs()
		ob, _ := b.Outputs()
		if oa.MTOW.SI() != ob.MTOW.SI() || oa.SPL != ob.SPL {
			t.Fatalf("%s: results differ between runs: %+v vs %+v", key, oa, ob)
		}
	}
}
