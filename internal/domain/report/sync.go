package report

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SyncEngine reconciles the remote store and the local cache. Mutations
// are remote-first: the cache mirrors a write only after the remote store
// confirmed it, so a failed push leaves the cache untouched. Pulls treat
// the remote store as authoritative and overwrite local rows wholesale.
type SyncEngine struct {
	remote RemoteStore
	cache  Cache
	hub    *Hub
}

// NewSyncEngine creates a sync engine. hub may be nil (no subscribers).
func NewSyncEngine(remote RemoteStore, cache Cache, hub *Hub) *SyncEngine {
	return &SyncEngine{remote: remote, cache: cache, hub: hub}
}

// Pull refreshes the cache from the remote store and returns the number
// of mirrored reports. Incoming records overwrite local rows with the
// same id; divergent local-only state does not survive a pull.
func (s *SyncEngine) Pull(ctx context.Context) (int, error) {
	reports, err := s.remote.QueryReports(ctx)
	if err != nil {
		return 0, err
	}

	mirrored := 0
	for _, r := range reports {
		r.IsSynced = true
		if err := s.cache.Upsert(ctx, r); err != nil {
			log.Error().Str("report_id", r.ID.String()).Err(err).Msg("Failed to mirror report during pull")
			continue
		}
		mirrored++
	}

	s.invalidate(ctx)

	log.Debug().Int("mirrored", mirrored).Int("fetched", len(reports)).Msg("Pull completed")
	return mirrored, nil
}

// PushReport writes the report to the remote store and, only on success,
// mirrors it locally with IsSynced set. The passed report is updated to
// the mirrored state.
func (s *SyncEngine) PushReport(ctx context.Context, r *Report) error {
	if err := s.remote.PutReport(ctx, r); err != nil {
		return err
	}

	r.IsSynced = true
	if err := s.cache.Upsert(ctx, r); err != nil {
		// Remote write is already durable; the divergence heals on the
		// next pull, so report success but flag the report as unsynced
		r.IsSynced = false
		log.Error().Str("report_id", r.ID.String()).Err(err).Msg("Remote write succeeded but local mirror failed")
		return nil
	}

	s.invalidate(ctx)
	return nil
}

// PushPatch applies fields at the remote store first, then mirrors the
// already-updated report locally.
func (s *SyncEngine) PushPatch(ctx context.Context, r *Report, fields map[string]interface{}) error {
	if err := s.remote.PatchReport(ctx, r.ID, fields); err != nil {
		return err
	}

	r.IsSynced = true
	if err := s.cache.Upsert(ctx, r); err != nil {
		r.IsSynced = false
		log.Error().Str("report_id", r.ID.String()).Err(err).Msg("Remote patch succeeded but local mirror failed")
		return nil
	}

	s.invalidate(ctx)
	return nil
}

// PushDelete removes the report from the remote store, then locally
func (s *SyncEngine) PushDelete(ctx context.Context, id uuid.UUID) error {
	if err := s.remote.DeleteReport(ctx, id); err != nil {
		return err
	}

	if err := s.cache.Delete(ctx, id); err != nil {
		log.Error().Str("report_id", id.String()).Err(err).Msg("Remote delete succeeded but local delete failed")
		return nil
	}

	s.invalidate(ctx)
	return nil
}

func (s *SyncEngine) invalidate(ctx context.Context) {
	if s.hub != nil {
		s.hub.Invalidate(ctx)
	}
}
