package infra

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"recipe-gateway/middleware/ratelimit/domain"
)

func newTestSQLStore(t *testing.T, c *fakeClock) *SQLStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// ":memory:" é por conexão; uma conexão só mantém a tabela visível.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s, err := NewSQLStore(db, WithSQLClock(c.Now))
	if err != nil {
		t.Fatalf("new sql store: %v", err)
	}
	return s
}

func TestSQLStore_PutGetOverwrite(t *testing.T) {
	c := &fakeClock{t: t0}
	s := newTestSQLStore(t, c)
	ctx := context.Background()

	if _, found, err := s.Get(ctx, "k"); err != nil || found {
		t.Fatalf("expected missing, found=%v err=%v", found, err)
	}

	_ = s.Put(ctx, "k", domain.NewUsageWindow(t0), domain.Window)
	w := domain.UsageWindow{Requests: 4, WindowStart: t0, LastRequest: t0.Add(time.Minute)}
	if err := s.Put(ctx, "k", w, domain.Window); err != nil {
		t.Fatalf("unexpected upsert error: %v", err)
	}

	got, found, err := s.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("expected record, found=%v err=%v", found, err)
	}
	if got.Requests != 4 || !got.LastRequest.Equal(t0.Add(time.Minute)) {
		t.Fatalf("expected overwritten record, got %+v", got)
	}
}

func TestSQLStore_ExpiryAndPurge(t *testing.T) {
	c := &fakeClock{t: t0}
	s := newTestSQLStore(t, c)
	ctx := context.Background()

	_ = s.Put(ctx, "old", domain.NewUsageWindow(t0), time.Minute)
	_ = s.Put(ctx, "new", domain.NewUsageWindow(t0), domain.Window)

	c.t = t0.Add(2 * time.Minute)
	if _, found, _ := s.Get(ctx, "old"); found {
		t.Fatalf("expected expired row to be invisible")
	}

	n, err := s.Purge(ctx)
	if err != nil {
		t.Fatalf("unexpected purge error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged row, got %d", n)
	}
	if _, found, _ := s.Get(ctx, "new"); !found {
		t.Fatalf("expected live row to survive purge")
	}
}

func TestSQLStore_Delete(t *testing.T) {
	c := &fakeClock{t: t0}
	s := newTestSQLStore(t, c)
	ctx := context.Background()

	_ = s.Put(ctx, "k", domain.NewUsageWindow(t0), domain.Window)
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if _, found, _ := s.Get(ctx, "k"); found {
		t.Fatalf("expected row to be deleted")
	}
}
