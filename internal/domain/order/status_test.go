package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled} {
		assert.True(t, s.Valid(), "%s should be valid", s)
	}
	assert.False(t, Status("unknown").Valid())
	assert.False(t, Status("").Valid())
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.False(t, StatusShipped.Terminal())
}

func TestStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusShipped, true},
		{StatusPending, StatusDelivered, true},
		{StatusProcessing, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusProcessing, true},

		// Terminal states accept nothing further.
		{StatusDelivered, StatusShipped, false},
		{StatusDelivered, StatusProcessing, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusProcessing, false},

		// Cancellation goes through Cancel, not a status update.
		{StatusPending, StatusCancelled, false},
		{StatusProcessing, StatusCancelled, false},
		{StatusShipped, StatusCancelled, false},

		// No self transitions, no unknown targets.
		{StatusProcessing, StatusProcessing, false},
		{StatusPending, Status("unknown"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}
