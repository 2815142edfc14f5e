package report

import (
	"context"
	"errors"
	"testing"
)

func TestSyncPull(t *testing.T) {
	ctx := context.Background()

	t.Run("mirrors remote reports into the cache", func(t *testing.T) {
		env := newTestEnv()
		a := pendingReport("Incendio", TypeFire)
		b := pendingReport("Ruido", TypeNoise)
		env.remote.reports[a.ID] = a.Clone()
		env.remote.reports[b.ID] = b.Clone()

		n, err := env.sync.Pull(ctx)
		if err != nil {
			t.Fatalf("Pull: %v", err)
		}
		if n != 2 {
			t.Errorf("mirrored %d, want 2", n)
		}

		cached, _ := env.cache.GetByID(ctx, a.ID)
		if cached == nil {
			t.Fatal("report not mirrored")
		}
		if !cached.IsSynced {
			t.Error("mirrored report should be marked synced")
		}
	})

	t.Run("remote state overwrites divergent local rows", func(t *testing.T) {
		env := newTestEnv()
		r := pendingReport("Robo", TypeRobbery)

		stale := r.Clone()
		stale.Title = "locally edited title"
		stale.Status = StatusApproved
		stale.IsSynced = false
		env.cache.rows[r.ID] = stale

		env.remote.reports[r.ID] = r.Clone()

		if _, err := env.sync.Pull(ctx); err != nil {
			t.Fatalf("Pull: %v", err)
		}

		cached, _ := env.cache.GetByID(ctx, r.ID)
		if cached.Title != "Robo" || cached.Status != StatusPending {
			t.Errorf("cached = %q/%q, want remote state", cached.Title, cached.Status)
		}
		if !cached.IsSynced {
			t.Error("pulled row should be synced")
		}
	})

	t.Run("remote outage fails the pull and keeps the cache", func(t *testing.T) {
		env := newTestEnv()
		r := pendingReport("Robo", TypeRobbery)
		seedReport(env, r)
		env.remote.failing = true

		if _, err := env.sync.Pull(ctx); !errors.Is(err, ErrNetwork) {
			t.Fatalf("err = %v, want network error", err)
		}

		cached, _ := env.cache.GetByID(ctx, r.ID)
		if cached == nil {
			t.Error("failed pull must not clear the cache")
		}
	})
}

func TestSyncPush(t *testing.T) {
	ctx := context.Background()

	t.Run("push failure leaves both stores untouched", func(t *testing.T) {
		env := newTestEnv()
		env.remote.failing = true
		r := pendingReport("Accidente", TypeAccident)

		if err := env.sync.PushReport(ctx, r); !errors.Is(err, ErrNetwork) {
			t.Fatalf("err = %v, want network error", err)
		}
		if r.IsSynced {
			t.Error("failed push must not mark the report synced")
		}
		if cached, _ := env.cache.GetByID(ctx, r.ID); cached != nil {
			t.Error("failed push must not write to the cache")
		}
	})

	t.Run("mirror failure still reports success", func(t *testing.T) {
		env := newTestEnv()
		env.cache.failing = true
		r := pendingReport("Accidente", TypeAccident)

		// The remote write is durable; the cache heals on the next pull
		if err := env.sync.PushReport(ctx, r); err != nil {
			t.Fatalf("PushReport: %v", err)
		}
		if r.IsSynced {
			t.Error("unmirrored report must stay flagged unsynced")
		}
		if _, ok := env.remote.reports[r.ID]; !ok {
			t.Error("remote write missing")
		}

		env.cache.failing = false
		if _, err := env.sync.Pull(ctx); err != nil {
			t.Fatalf("Pull: %v", err)
		}
		cached, _ := env.cache.GetByID(ctx, r.ID)
		if cached == nil || !cached.IsSynced {
			t.Error("pull did not heal the missed mirror")
		}
	})

	t.Run("delete removes from both stores", func(t *testing.T) {
		env := newTestEnv()
		r := pendingReport("Accidente", TypeAccident)
		seedReport(env, r)

		if err := env.sync.PushDelete(ctx, r.ID); err != nil {
			t.Fatalf("PushDelete: %v", err)
		}
		if _, ok := env.remote.reports[r.ID]; ok {
			t.Error("remote row survived the delete")
		}
		if cached, _ := env.cache.GetByID(ctx, r.ID); cached != nil {
			t.Error("cache row survived the delete")
		}
	})
}
