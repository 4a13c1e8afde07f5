package main

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulate(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sum, err := simulate(context.Background(), logger, simOptions{Games: 10, Players: 4, MaxTurns: 2000, Seed: 7})
	require.NoError(t, err)

	assert.Equal(t, 10, sum.Games)
	finished := 0
	for _, n := range sum.ByReason {
		finished += n
	}
	assert.Equal(t, sum.Games, finished+sum.Unfinished)
	assert.Positive(t, sum.TotalTurns)
}

func TestSimulateRejectsBadTableSize(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := simulate(context.Background(), logger, simOptions{Games: 1, Players: 1, MaxTurns: 10})
	assert.Error(t, err)
}

func TestSimulateStopsOnCancel(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := simulate(ctx, logger, simOptions{Games: 5, Players: 2, MaxTurns: 10})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sum.Games)
}
