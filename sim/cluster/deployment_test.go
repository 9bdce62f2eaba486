package cluster

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphrat-sim/graphrat-sim/sim"
)

func TestDeploymentConfig_Setup_GeneratesRunID(t *testing.T) {
	cfg := DeploymentConfig{Seed: 4, Steps: 2, Mode: sim.UpdateRat, DisplayInterval: 1}

	a := cfg.Setup([]int{0, 1}, true)
	b := cfg.Setup([]int{0, 1}, true)

	_, err := uuid.Parse(a.RunID)
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID, "each run gets its own id")
	assert.Equal(t, uint64(4), a.Seed)
	assert.Equal(t, sim.UpdateRat, a.Mode)
	assert.Equal(t, []int{0, 1}, a.Positions)
	assert.True(t, a.Display)
}

func TestDeploymentConfig_Setup_KeepsRunID(t *testing.T) {
	s := DeploymentConfig{RunID: "nightly"}.Setup(nil, false)
	assert.Equal(t, "nightly", s.RunID)
}

func TestDeploymentConfig_Setup_DisplayNeedsInterval(t *testing.T) {
	// GIVEN a display hook but no display interval
	s := DeploymentConfig{DisplayInterval: 0}.Setup(nil, true)

	// THEN zones do not ship counts for display
	assert.False(t, s.Display)
}
