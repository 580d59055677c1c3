package events_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/myba/internal/events"
)

func TestFromContext(t *testing.T) {
	ctx := context.Background()

	logger := events.FromContext(ctx)
	assert.NotNil(t, logger)
}

func TestWithLogger(t *testing.T) {
	ctx := context.Background()
	logger := &events.Logger{}

	ctx = events.WithLogger(ctx, logger)
	retrieved := events.FromContext(ctx)

	assert.Equal(t, logger, retrieved)
}

func TestWithRequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "req-123"

	ctx = events.WithRequestID(ctx, requestID)
	retrieved := events.GetRequestID(ctx)

	assert.Equal(t, requestID, retrieved)

	logger := events.FromContext(ctx)
	assert.NotNil(t, logger)
}

func TestWithCommit(t *testing.T) {
	ctx := context.Background()
	hash := "abc1234"

	ctx = events.WithCommit(ctx, hash)
	retrieved := events.GetCommit(ctx)

	assert.Equal(t, hash, retrieved)

	logger := events.FromContext(ctx)
	assert.NotNil(t, logger)
}

func TestGetRequestIDEmpty(t *testing.T) {
	ctx := context.Background()
	id := events.GetRequestID(ctx)
	assert.Empty(t, id)
}

func TestGetCommitEmpty(t *testing.T) {
	ctx := context.Background()
	id := events.GetCommit(ctx)
	assert.Empty(t, id)
}

func TestSetDefault(t *testing.T) {
	customLogger := &events.Logger{}
	events.SetDefault(customLogger)

	ctx := context.Background()
	retrieved := events.FromContext(ctx)

	assert.Equal(t, customLogger, retrieved)
}
