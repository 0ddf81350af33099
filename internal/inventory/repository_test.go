package inventory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/camgate/internal/camera"
	"github.com/nerrad567/camgate/internal/infrastructure/config"
	"github.com/nerrad567/camgate/internal/infrastructure/database"
	"github.com/nerrad567/camgate/internal/registry"
	"github.com/nerrad567/camgate/migrations"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Enabled:     true,
		Path:        filepath.Join(t.TempDir(), "inventory.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func entries(n int) []registry.Entry {
	out := make([]registry.Entry, n)
	for i := range out {
		out[i] = registry.Entry{
			Kind:  camera.KindSimulated,
			Index: i,
			Info: camera.DeviceInfo{
				Name: "Simulated Camera", MaxWidth: 1920, MaxHeight: 1080, BitDepth: 12,
			},
		}
	}
	return out
}

func TestEnumerated_InsertsAndCounts(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return t0 }
	if err := repo.Enumerated(ctx, registry.TriggerStartup, entries(2)); err != nil {
		t.Fatalf("Enumerated() error = %v", err)
	}

	t1 := t0.Add(time.Hour)
	repo.now = func() time.Time { return t1 }
	if err := repo.Enumerated(ctx, registry.TriggerInit, entries(1)); err != nil {
		t.Fatalf("Enumerated() error = %v", err)
	}

	cams, err := repo.ListCameras(ctx)
	if err != nil {
		t.Fatalf("ListCameras() error = %v", err)
	}
	if len(cams) != 2 {
		t.Fatalf("ListCameras() = %d cameras, want 2", len(cams))
	}

	first := cams[0]
	if first.Kind != camera.KindSimulated.String() || first.Index != 0 || first.TimesSeen != 2 {
		t.Errorf("camera 0 = %+v, want seen twice", first)
	}
	if !first.FirstSeen.Equal(t0) || !first.LastSeen.Equal(t1) {
		t.Errorf("camera 0 seen %v..%v, want %v..%v", first.FirstSeen, first.LastSeen, t0, t1)
	}
	if cams[1].TimesSeen != 1 || !cams[1].LastSeen.Equal(t0) {
		t.Errorf("camera 1 = %+v, want seen once at %v", cams[1], t0)
	}
}

func TestRecentEnumerations(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := repo.Enumerated(ctx, registry.TriggerInit, entries(i)); err != nil {
			t.Fatalf("Enumerated() error = %v", err)
		}
	}

	got, err := repo.RecentEnumerations(ctx, 2)
	if err != nil {
		t.Fatalf("RecentEnumerations() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentEnumerations() = %d rows, want 2", len(got))
	}
	if got[0].CameraCount != 2 || got[1].CameraCount != 1 {
		t.Errorf("counts = %d, %d; want newest first (2, 1)", got[0].CameraCount, got[1].CameraCount)
	}
	if got[0].Trigger != registry.TriggerInit {
		t.Errorf("Trigger = %q", got[0].Trigger)
	}
}

func TestGetCamera(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if err := repo.Enumerated(ctx, registry.TriggerStartup, entries(1)); err != nil {
		t.Fatal(err)
	}

	cam, err := repo.GetCamera(ctx, "simulated", 0)
	if err != nil {
		t.Fatalf("GetCamera() error = %v", err)
	}
	if cam.MaxWidth != 1920 || cam.BitDepth != 12 {
		t.Errorf("camera = %+v", cam)
	}

	if _, err := repo.GetCamera(ctx, "simulated", 9); !errors.Is(err, ErrCameraNotFound) {
		t.Errorf("GetCamera(9) error = %v, want ErrCameraNotFound", err)
	}
}

func TestEnumerated_AsRegistryObserver(t *testing.T) {
	repo := setupRepo(t)

	reg := registry.New(camera.NewSimulatedDriver(camera.SimulatedOptions{Count: 2, Width: 64, Height: 48}))
	reg.SetObserver(repo)
	t.Cleanup(func() { reg.Close() })

	if _, err := reg.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	cams, err := repo.ListCameras(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cams) != 2 || cams[1].MaxWidth != 64 {
		t.Errorf("cameras = %+v", cams)
	}
}
