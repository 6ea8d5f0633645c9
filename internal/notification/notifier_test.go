package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogNotifierWritesConfirmation(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	err := n.SendBookingConfirmation(context.Background(), Confirmation{
		BookingID:        "bk-1",
		ConfirmationCode: "K7Q2M9XA",
		VisitorName:      "Somchai",
		SpotLabel:        "V-01",
		StartTime:        time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Amount:           5000,
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("booking confirmation").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "bk-1", fields["booking_id"])
	assert.Equal(t, "K7Q2M9XA", fields["code"])
	assert.Equal(t, "notifier", fields["component"])
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	n, err := New("", "", "", zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LogNotifier{}, n)

	_, err = New("sms", "", "", zap.NewNop())
	assert.Error(t, err)
}
