package health

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestRegistry_AllHealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("a", func(ctx context.Context) Status {
		return Status{Name: "a", Healthy: true}
	})
	r.Register("b", func(ctx context.Context) Status {
		return Status{Name: "b", Healthy: true}
	})

	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Error("expected aggregate healthy")
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
}

func TestRegistry_OneUnhealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("ok", func(ctx context.Context) Status {
		return Status{Name: "ok", Healthy: true}
	})
	r.Register("down", func(ctx context.Context) Status {
		return Status{Name: "down", Healthy: false, Detail: "connection refused"}
	})

	healthy, statuses := r.CheckAll(context.Background())
	if healthy {
		t.Error("expected aggregate unhealthy")
	}
	if statuses[1].Detail != "connection refused" {
		t.Errorf("expected detail to carry through, got %q", statuses[1].Detail)
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	check := FileExists("model", path)
	if st := check(context.Background()); st.Healthy {
		t.Error("expected unhealthy for missing file")
	}

	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if st := check(context.Background()); !st.Healthy {
		t.Errorf("expected healthy for present file, got %q", st.Detail)
	}
}
