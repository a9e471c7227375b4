package application

import (
	"time"

	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
)

// Config carries deployment-level policy for the engine.
type Config struct {
	// RequireInvitations gates quote submission and OPEN_BIDDING on
	// supplier invitations. False selects open-marketplace mode.
	RequireInvitations bool
	// AllowEmptyEvaluation permits START_EVALUATION with zero ranked
	// quotes so a buyer can proceed straight to an explicit cancel.
	AllowEmptyEvaluation bool
	// SweepBatchSize bounds how many overdue RFQs one sweep pass closes.
	SweepBatchSize int
}

// DefaultConfig is the production default: invitations required, at least
// one ranked quote to evaluate.
func DefaultConfig() Config {
	return Config{
		RequireInvitations:   true,
		AllowEmptyEvaluation: false,
		SweepBatchSize:       100,
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the wall clock.
func SystemClock() ports.Clock { return systemClock{} }
