package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStampsEnvelope(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	e := New(LeadCaptured, "lead-1", at, map[string]any{"loan_type": "home"})

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, LeadCaptured, e.Type)
	assert.Equal(t, "lead-1", e.AggregateID)
	assert.Equal(t, time.UTC, e.OccurredAt.Location())
	assert.True(t, at.Equal(e.OccurredAt))
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()
	require.NoError(t, r.Publish(ctx, New(LeadCaptured, "a", time.Now(), nil)))
	require.NoError(t, r.Publish(ctx, New(ApplicationSubmitted, "b", time.Now(), nil)))

	assert.Len(t, r.Events(), 2)
	assert.Len(t, r.OfType(ApplicationSubmitted), 1)

	r.FailWith(errors.New("broker down"))
	assert.Error(t, r.Publish(ctx, New(LeadCaptured, "c", time.Now(), nil)))
	assert.Len(t, r.Events(), 2)
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, p.Publish(context.Background(), New(ApplicationReviewed, "app-9", time.Now(), nil)))
	assert.Contains(t, buf.String(), "event_type=application.reviewed")
	assert.Contains(t, buf.String(), "aggregate_id=app-9")
}
