package view

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"calibboard/internal"
)

func TestBuildOptions(t *testing.T) {
	records := []internal.CanonicalRecord{
		{Subsystem: "Effluents", Location: " Sala 2"},
		{Subsystem: "Compressed Air", Location: "Sala 1"},
		{Subsystem: "Effluents", Location: "Sala 2 "},
		{Subsystem: "Effluents", Location: ""},
		{Subsystem: "  ", Location: "   "},
	}

	got := BuildOptions(records)
	assert.Equal(t, []string{"Compressed Air", "Effluents"}, got.Subsystems)
	assert.Equal(t, []string{"Sala 1", "Sala 2"}, got.Locations)
}

func TestBuildOptions_Empty(t *testing.T) {
	got := BuildOptions(nil)
	assert.NotNil(t, got.Subsystems)
	assert.Empty(t, got.Subsystems)
	assert.Empty(t, got.Locations)
}
