package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"Placed", "Confirmed", "Preparing", "Ready", "Assigned", "OnTheWay", "Delivered", "Cancelled"} {
		parsed, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, s, parsed.String())
	}

	_, err := ParseStatus("PickedUp")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = ParseStatus("")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestStatusNext(t *testing.T) {
	cases := map[Status]Status{
		StatusPlaced:    StatusConfirmed,
		StatusConfirmed: StatusPreparing,
		StatusPreparing: StatusReady,
		StatusReady:     StatusAssigned,
		StatusAssigned:  StatusOnTheWay,
		StatusOnTheWay:  StatusDelivered,
	}
	for from, want := range cases {
		next, ok := from.Next()
		require.True(t, ok, "forward from %s", from)
		assert.Equal(t, want, next)
	}

	for _, terminal := range []Status{StatusDelivered, StatusCancelled} {
		_, ok := terminal.Next()
		assert.False(t, ok, "forward from %s", terminal)
	}
}

func TestStatusPrevious(t *testing.T) {
	cases := map[Status]Status{
		StatusConfirmed: StatusPlaced,
		StatusPreparing: StatusConfirmed,
		StatusReady:     StatusPreparing,
	}
	for from, want := range cases {
		prev, ok := from.Previous()
		require.True(t, ok, "revert from %s", from)
		assert.Equal(t, want, prev)
	}

	// Everything past Ready, plus the terminals, has no revert.
	for _, s := range []Status{StatusPlaced, StatusAssigned, StatusOnTheWay, StatusDelivered, StatusCancelled} {
		_, ok := s.Previous()
		assert.False(t, ok, "revert from %s", s)
	}
}

func TestStatusCancellable(t *testing.T) {
	assert.True(t, StatusPlaced.Cancellable())
	assert.True(t, StatusConfirmed.Cancellable())
	assert.True(t, StatusPreparing.Cancellable())

	assert.False(t, StatusReady.Cancellable())
	assert.False(t, StatusAssigned.Cancellable())
	assert.False(t, StatusOnTheWay.Cancellable())
	assert.False(t, StatusDelivered.Cancellable())
	assert.False(t, StatusCancelled.Cancellable())
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusOnTheWay.Terminal())
}
