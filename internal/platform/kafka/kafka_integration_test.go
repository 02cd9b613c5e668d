//go:build integration

package kafka_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tally/internal/platform/kafka"
	"tally/pkg/testutil/containers"
)

func TestEnsureTopicIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rp := containers.GetManager().GetRedpanda(t)
	cfg := kafka.Config{Brokers: rp.Brokers, Topic: "reconciliation.events", ClientID: "tally-test"}

	client, err := kafka.NewClient(cfg)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, kafka.EnsureTopic(ctx, client, cfg))
	require.NoError(t, kafka.EnsureTopic(ctx, client, cfg))
}

func TestNewClientWithoutBrokers(t *testing.T) {
	client, err := kafka.NewClient(kafka.Config{})
	require.NoError(t, err)
	require.Nil(t, client)
}
