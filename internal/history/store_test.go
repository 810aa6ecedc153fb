package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAddAndListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first, err := store.Add(ctx, Entry{
		SessionID: "s1", Kind: "gif", Filename: "slideshow_1.gif", Path: "/out/slideshow_1.gif",
		MIMEType: "image/gif", SizeBytes: 1024, Frames: 6, Width: 640, Height: 480, CreatedAt: base,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if first.ID == 0 {
		t.Fatal("expected ID to be assigned")
	}
	if _, err := store.Add(ctx, Entry{
		SessionID: "s1", Kind: "video", Filename: "slideshow_2.webm", Path: "/out/slideshow_2.webm",
		MIMEType: "video/webm;codecs=vp9", SizeBytes: 4096, Frames: 45, UsedFallback: true,
		Codec: "vp9", DurationSeconds: 1.5, CreatedAt: base.Add(time.Minute),
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := store.Add(ctx, Entry{SessionID: "s2", Kind: "gif", Filename: "slideshow_3.gif", CreatedAt: base.Add(-time.Hour)}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	entries, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	video := entries[0]
	if video.Filename != "slideshow_2.webm" || !video.UsedFallback || video.Codec != "vp9" || video.DurationSeconds != 1.5 {
		t.Fatalf("unexpected newest entry %+v", video)
	}
	if !entries[1].CreatedAt.Equal(base) || entries[1].Codec != "" {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}

	all, err := store.List(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("List all = %d, %v", len(all), err)
	}
	n, err := store.CountBySession(ctx, "s1")
	if err != nil || n != 2 {
		t.Fatalf("CountBySession = %d, %v", n, err)
	}
}

func TestAddRequiresFilename(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Add(context.Background(), Entry{Kind: "gif"}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()
	store, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Add(ctx, Entry{Kind: "gif", Filename: "a.gif"}); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	store, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	entries, err := store.List(ctx, 10)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected 1 entry after reopen, got %d, %v", len(entries), err)
	}
}

func TestSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()
	store, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.db.ExecContext(ctx, "UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	if _, err := Open(ctx, path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
