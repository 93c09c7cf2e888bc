package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventTypeValid(t *testing.T) {
	valid := []EventType{
		EventRoadClosure, EventRoadDamage, EventRoadClear, EventFlooding,
		EventBridgeCollapse, EventShelterOpening, EventShelterClosing,
		EventShelterNeed, EventPowerOutage, EventInfrastructureDamage,
		EventRescueNeeded, EventSuppliesNeeded,
	}
	for _, e := range valid {
		assert.True(t, e.Valid(), string(e))
	}

	assert.False(t, EventType("tornado").Valid())
	assert.False(t, EventType("").Valid())
}

func TestEventTypeAffectsRoads(t *testing.T) {
	affects := []EventType{
		EventRoadClosure, EventRoadDamage, EventBridgeCollapse,
		EventFlooding, EventRoadClear,
	}
	for _, e := range affects {
		assert.True(t, e.AffectsRoads(), string(e))
	}

	ignores := []EventType{
		EventShelterOpening, EventShelterClosing, EventShelterNeed,
		EventPowerOutage, EventInfrastructureDamage, EventRescueNeeded,
		EventSuppliesNeeded,
	}
	for _, e := range ignores {
		assert.False(t, e.AffectsRoads(), string(e))
	}
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(-0.3))
	assert.Equal(t, 0.0, ClampConfidence(0))
	assert.Equal(t, 0.42, ClampConfidence(0.42))
	assert.Equal(t, 1.0, ClampConfidence(1))
	assert.Equal(t, 1.0, ClampConfidence(1.7))
}
