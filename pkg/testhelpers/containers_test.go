//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestTestRedis_Connection(t *testing.T) {
	testRedis := GetTestRedis(t)

	ctx := context.Background()
	if err := testRedis.Client.Set(ctx, "testhelpers:ping", "pong", 0).Err(); err != nil {
		t.Fatalf("failed to write key: %v", err)
	}

	got, err := testRedis.Client.Get(ctx, "testhelpers:ping").Result()
	if err != nil {
		t.Fatalf("failed to read key: %v", err)
	}
	if got != "pong" {
		t.Errorf("expected %q, got %q", "pong", got)
	}
}
