// Package studyd serves finished sweep reports over HTTP and gRPC.
package studyd

import (
	"errors"
	"fmt"
	"sync"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/sweep"
)

var (
	ErrSweepNotFound = errors.New("sweep not found")
	ErrNoSweep       = errors.New("no sweep has finished")
	ErrSweepExists   = errors.New("sweep already exists")
)

// ReportStore keeps finished sweep reports. Reports are read-only once stored.
type ReportStore struct {
	mu      sync.RWMutex
	reports map[string]*sweep.Report
	order   []string
}

func NewReportStore() *ReportStore {
	return &ReportStore{
		reports: make(map[string]*sweep.Report),
	}
}

// Put stores a finished report
func (s *ReportStore) Put(rep *sweep.Report) error {
	if rep == nil || rep.SweepID == "" {
		return errors.New("report with a sweep id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[rep.SweepID]; exists {
		return fmt.Errorf("%w: %s", ErrSweepExists, rep.SweepID)
	}
	s.reports[rep.SweepID] = rep
	s.order = append(s.order, rep.SweepID)
	return nil
}

func (s *ReportStore) Get(sweepID string) (*sweep.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rep, ok := s.reports[sweepID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSweepNotFound, sweepID)
	}
	return rep, nil
}

// Latest returns the most recently stored report
func (s *ReportStore) Latest() (*sweep.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return nil, ErrNoSweep
	}
	return s.reports[s.order[len(s.order)-1]], nil
}

// Lookup returns the named report, or the latest one when sweepID is empty
func (s *ReportStore) Lookup(sweepID string) (*sweep.Report, error) {
	if sweepID == "" {
		return s.Latest()
	}
	return s.Get(sweepID)
}

// IDs lists stored sweep ids, oldest first
func (s *ReportStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}
