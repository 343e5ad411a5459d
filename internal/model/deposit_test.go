package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	assert.True(t, CanTransitionTo(RequestStatusPending, RequestStatusApproved))
	assert.True(t, CanTransitionTo(RequestStatusPending, RequestStatusDeclined))

	// Terminal states accept no further transitions.
	assert.False(t, CanTransitionTo(RequestStatusApproved, RequestStatusDeclined))
	assert.False(t, CanTransitionTo(RequestStatusApproved, RequestStatusPending))
	assert.False(t, CanTransitionTo(RequestStatusDeclined, RequestStatusApproved))
	assert.False(t, CanTransitionTo(RequestStatusDeclined, RequestStatusPending))

	// Self-transitions and unknown states are rejected.
	assert.False(t, CanTransitionTo(RequestStatusPending, RequestStatusPending))
	assert.False(t, CanTransitionTo("UNKNOWN", RequestStatusApproved))
}
