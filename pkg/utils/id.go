package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateSweepID generates a sweep ID with a timestamp prefix
func GenerateSweepID() string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	return fmt.Sprintf("sweep-%s-%s", timestamp, uuid.NewString()[:8])
}

// GenerateCellID derives a stable ID for one (configuration, reserve policy) cell.
// The same sweep and coordinates always map to the same ID.
func GenerateCellID(sweepID, configuration, policy string) string {
	name := strings.Join([]string{sweepID, configuration, policy}, "\x00")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// ParseCellID validates a cell ID produced by GenerateCellID
func ParseCellID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid cell id %q: %w", id, err)
	}
	if u.Version() != 5 {
		return uuid.Nil, fmt.Errorf("invalid cell id %q: unexpected uuid version %d", id, u.Version())
	}
	return u, nil
}
