package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_ReferenceConstants(t *testing.T) {
	want := Config{
		BatchFraction:   0.02,
		BaseILF:         1.75,
		StaticILF:       false,
		BinaryThreshold: 4,
	}
	assert.Equal(t, want, DefaultConfig())
}

func TestConfig_WithDefaults_FillsZeroFields(t *testing.T) {
	got := Config{StaticILF: true, BaseILF: 2.5}.withDefaults()

	assert.Equal(t, DefaultBatchFraction, got.BatchFraction)
	assert.Equal(t, 2.5, got.BaseILF)
	assert.True(t, got.StaticILF)
	assert.Equal(t, DefaultBinaryThreshold, got.BinaryThreshold)
}
