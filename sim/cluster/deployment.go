package cluster

import (
	"github.com/google/uuid"

	"github.com/graphrat-sim/graphrat-sim/sim"
	"github.com/graphrat-sim/graphrat-sim/sim/exchange"
)

// DeploymentConfig describes a zone-partitioned run. The number of zones is
// taken from the graph, which must have been built for it.
type DeploymentConfig struct {
	RunID           string // generated when empty
	Seed            uint64
	Steps           int
	Mode            sim.UpdateMode
	DisplayInterval int // steps between display records; 0 disables them
	Config          sim.Config
}

// Setup packages the config and initial positions for distribution to zones.
func (c DeploymentConfig) Setup(positions []int, display bool) *exchange.Setup {
	runID := c.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return &exchange.Setup{
		RunID:           runID,
		Seed:            c.Seed,
		Steps:           c.Steps,
		Mode:            c.Mode,
		DisplayInterval: c.DisplayInterval,
		Display:         display && c.DisplayInterval > 0,
		Config:          c.Config,
		Positions:       positions,
	}
}
