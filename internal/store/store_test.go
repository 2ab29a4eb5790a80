package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aravhawk/openrank/internal/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	path := filepath.Join(t.TempDir(), "students.json")
	s, err := NewFileStore(path, telemetry.SlogAPI{})
	require.NoError(t, err)
	return s, path
}

func TestUpsertGetRoundTrip(t *testing.T) {
	s, _ := newTestFileStore(t)
	ctx := context.Background()

	gpa := 3.87
	updated := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	record := StudentRecord{
		Username:    "jane",
		District:    "Bentonville School District",
		Password:    "hunter2",
		Name:        "Jane Doe",
		GPA:         &gpa,
		LastUpdated: &updated,
	}
	require.NoError(t, s.Upsert(ctx, record))

	got, ok, err := s.Get(ctx, "jane")
	require.NoError(t, err)
	require.True(t, ok)
	if diff := cmp.Diff(record, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestGetMissing(t *testing.T) {
	s, _ := newTestFileStore(t)

	_, ok, err := s.Get(context.Background(), "nobody")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUpsertReplaces(t *testing.T) {
	s, _ := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, StudentRecord{Username: "jane", District: "a"}))
	require.NoError(t, s.Upsert(ctx, StudentRecord{Username: "jane", District: "b"}))

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "b", all[0].District)
}

func TestPersistsAcrossReopen(t *testing.T) {
	s, path := newTestFileStore(t)
	ctx := context.Background()

	gpa := 4.0
	updated := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.Upsert(ctx, StudentRecord{
		Username:    "jane",
		GPA:         &gpa,
		LastUpdated: &updated,
	}))

	reopened, err := NewFileStore(path, telemetry.SlogAPI{})
	require.NoError(t, err)

	got, ok, err := reopened.Get(ctx, "jane")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, got.GPA)
	require.Equal(t, 4.0, *got.GPA)
	require.True(t, updated.Equal(*got.LastUpdated))
}

func TestSeedsDefaultAdmin(t *testing.T) {
	s, _ := newTestFileStore(t)

	admin, ok, err := s.GetAdmin(context.Background(), "admin")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("admin123")))
	// the portal-facing plaintext must never end up in the admin record
	require.NotContains(t, admin.PasswordHash, "admin123")
}

func TestCorruptFileResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := NewFileStore(path, telemetry.SlogAPI{})
	require.NoError(t, err)

	all, err := s.All(context.Background())
	require.NoError(t, err)
	require.Empty(t, all)

	_, ok, err := s.GetAdmin(context.Background(), "admin")
	require.NoError(t, err)
	require.True(t, ok)
}
