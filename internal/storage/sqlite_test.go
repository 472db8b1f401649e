package storage

import (
	"context"
	"path/filepath"
	"testing"

	logx "mimicbot/pkg/logx"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "schedule.db"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	t.Parallel()
	st := newSQLiteStore(t)
	ctx := context.Background()

	if err := st.Save(ctx, Schedule{"1001": 1700000000, "1002": 1700000123.5}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got := st.Load(ctx)
	if len(got) != 2 || got["1001"] != 1700000000 || got["1002"] != 1700000123.5 {
		t.Fatalf("load = %v", got)
	}
}

func TestSQLiteStoreSaveReplacesDocument(t *testing.T) {
	t.Parallel()
	st := newSQLiteStore(t)
	ctx := context.Background()

	if err := st.Save(ctx, Schedule{"1001": 1, "1002": 2}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.Save(ctx, Schedule{"1003": 3}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got := st.Load(ctx)
	if len(got) != 1 || got["1003"] != 3 {
		t.Fatalf("load = %v, want only the second document", got)
	}
}

func TestSQLiteStoreSetNextUpserts(t *testing.T) {
	t.Parallel()
	st := newSQLiteStore(t)
	ctx := context.Background()

	if err := st.SetNext(ctx, "1001", 100); err != nil {
		t.Fatalf("set next: %v", err)
	}
	if err := st.SetNext(ctx, "1001", 200); err != nil {
		t.Fatalf("set next: %v", err)
	}
	if got := st.Load(ctx)["1001"]; got != 200 {
		t.Fatalf("load[1001] = %v, want 200", got)
	}
}

func TestSQLiteStoreEmptyLoads(t *testing.T) {
	t.Parallel()
	st := newSQLiteStore(t)
	if got := st.Load(context.Background()); len(got) != 0 {
		t.Fatalf("load = %v, want empty", got)
	}
}
