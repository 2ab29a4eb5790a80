package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPushPull(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	day1 := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.Push(ctx, "jane", 3.8, day1))
	require.NoError(t, s.Push(ctx, "jane", 3.87, day2))
	require.NoError(t, s.Push(ctx, "mark", 3.2, day2))

	snapshots, err := s.Pull(ctx, "jane")
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	require.Equal(t, 3.8, snapshots[0].GPA)
	require.Equal(t, 3.87, snapshots[1].GPA)
	require.True(t, snapshots[0].TakenAt.Before(snapshots[1].TakenAt))
}

func TestPushSameDayReplaces(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	morning := time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 8, 26, 20, 0, 0, 0, time.UTC)

	require.NoError(t, s.Push(ctx, "jane", 3.8, morning))
	require.NoError(t, s.Push(ctx, "jane", 3.9, evening))

	snapshots, err := s.Pull(ctx, "jane")
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	require.Equal(t, 3.9, snapshots[0].GPA)
}

func TestPullUnknownStudent(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	snapshots, err := s.Pull(context.Background(), "nobody")
	require.NoError(t, err)
	require.Empty(t, snapshots)
}
