package jobsapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/threatrelay/advisory-backend/database"
	"github.com/threatrelay/advisory-backend/internal/jobs"
)

// busyApp returns an app whose job lock is already held by "sync", so any
// job trigger must fail fast with 409 before touching the store.
func busyApp(t *testing.T) (*fiber.App, func()) {
	t.Helper()

	lock := jobs.NewLock()
	release, err := lock.TryAcquire("sync")
	if err != nil {
		t.Fatalf("lock setup: %v", err)
	}

	runner := jobs.NewRunner(database.DBConnection{}, nil, lock, zap.NewNop().Sugar())

	app := fiber.New()
	app.Post("/jobs/sync", PostSync(runner))
	app.Post("/jobs/deduplicate", PostDeduplicate(runner))
	app.Post("/jobs/reprocess", PostReprocess(runner))
	app.Get("/jobs/status", GetJobStatus(lock))
	return app, release
}

func TestJobTriggersConflict(t *testing.T) {
	app, release := busyApp(t)
	defer release()

	for _, path := range []string{"/jobs/sync", "/jobs/deduplicate", "/jobs/reprocess"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("%s: status = %d, want 409", path, resp.StatusCode)
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		var payload struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
		}
		if err = json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("%s: bad body %q", path, body)
		}
		if payload.Success {
			t.Errorf("%s: success should be false", path)
		}
		if payload.Message != "Job already running: sync" {
			t.Errorf("%s: message = %q", path, payload.Message)
		}
	}
}

func TestJobStatus(t *testing.T) {
	app, release := busyApp(t)

	req := httptest.NewRequest(http.MethodGet, "/jobs/status", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	var payload struct {
		Running bool   `json:"running"`
		Job     string `json:"job"`
	}
	if err = json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("bad body %q", body)
	}
	if !payload.Running || payload.Job != "sync" {
		t.Errorf("status = %+v, want running sync", payload)
	}

	release()

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/jobs/status", nil))
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err = json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("bad body %q", body)
	}
	if payload.Running {
		t.Error("lock should be idle after release")
	}
}
