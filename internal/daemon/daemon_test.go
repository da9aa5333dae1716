package daemon_test

import (
	"context"
	"testing"

	"librarian/internal/daemon"
	"librarian/internal/logging"
	"librarian/internal/testsupport"
)

func TestStartEnforcesSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	first, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer first.Close()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	second, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	defer second.Close()
	if err := second.Start(ctx); err == nil {
		t.Fatal("second Start should fail while the lock is held")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("Start after lock release: %v", err)
	}
	second.Stop()
}

func TestStatusReflectsRuntime(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	status := d.Status(ctx)
	if status.Running {
		t.Fatal("daemon should not report running before Start")
	}
	if status.CatalogDBPath != cfg.CatalogDBPath() {
		t.Fatalf("catalog db path = %q", status.CatalogDBPath)
	}
	if status.ContentCount != 0 {
		t.Fatalf("content count = %d", status.ContentCount)
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status = d.Status(ctx)
	if !status.Running || status.Since.IsZero() {
		t.Fatalf("status after Start = %+v", status)
	}
	d.Stop()
}

func TestStopIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	d.Stop()
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	d.Stop()
	d.Stop()
}
