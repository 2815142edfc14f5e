package report

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/alertavecinal/alerta-api/internal/domain/notification"
)

// Service is the single entry point for report reads, writes and
// moderation. Every operation returns an error from the package taxonomy
// instead of panicking; reads prefer the local cache, mutations go
// remote-first through the sync engine.
type Service struct {
	remote RemoteStore
	cache  Cache
	sync   *SyncEngine
	hub    *Hub

	now func() time.Time
}

// NewService creates the report facade. hub may be nil when no live
// subscriptions are needed (tests, batch tooling).
func NewService(remote RemoteStore, cache Cache, syncEngine *SyncEngine, hub *Hub) *Service {
	return &Service{
		remote: remote,
		cache:  cache,
		sync:   syncEngine,
		hub:    hub,
		now:    time.Now,
	}
}

// CreateInput carries everything needed to submit a new report. Location
// comes from the device's location provider; the image URL, if any, from
// the upload pipeline.
type CreateInput struct {
	UserID      string
	UserName    string
	Title       string
	Description string
	Type        ReportType
	Latitude    float64
	Longitude   float64
	Address     *string
	ImageURL    *string
}

func newReport(in CreateInput, now time.Time) *Report {
	return &Report{
		ID:          uuid.New(),
		UserID:      in.UserID,
		UserName:    in.UserName,
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
		Status:      StatusPending,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Address:     in.Address,
		ImageURL:    in.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
		IsSynced:    false,
	}
}

// Create submits a new report. The report starts Pending and unsynced;
// it is pushed to the remote store and mirrored locally before Create
// returns. A remote failure fails the call and leaves the cache untouched.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Report, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, ErrEmptyTitle
	}
	if _, ok := ParseReportType(string(in.Type)); !ok {
		return nil, ErrInvalidType
	}
	if in.Latitude < -90 || in.Latitude > 90 || in.Longitude < -180 || in.Longitude > 180 {
		return nil, ErrInvalidCoordinates
	}

	r := newReport(in, s.now())
	if err := s.sync.PushReport(ctx, r); err != nil {
		return nil, err
	}

	log.Info().Str("report_id", r.ID.String()).Str("type", string(r.Type)).Msg("Report created")
	return r, nil
}

// GetByID serves from the local cache; on a miss it falls back to the
// remote store and backfills the cache so the next read works offline.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	cached, err := s.cache.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	r, err := s.remote.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	r.IsSynced = true
	if err := s.cache.Upsert(ctx, r); err != nil {
		r.IsSynced = false
		log.Error().Str("report_id", id.String()).Err(err).Msg("Failed to backfill cache")
	} else if s.hub != nil {
		s.hub.Invalidate(ctx)
	}

	return r, nil
}

// List returns cached reports matching the filter, newest first
func (s *Service) List(ctx context.Context, f Filter) ([]*Report, error) {
	return s.cache.List(ctx, f)
}

// Watch opens a live subscription over the filter. The caller must Close
// the subscription (or cancel ctx) when done.
func (s *Service) Watch(ctx context.Context, f Filter) (*Subscription, error) {
	if s.hub == nil {
		return nil, fmt.Errorf("live subscriptions are not enabled")
	}
	return s.hub.Subscribe(ctx, f)
}

// Approve transitions a pending report to Approved and notifies its author
func (s *Service) Approve(ctx context.Context, id uuid.UUID, mod Moderator, comment string) (*Report, error) {
	r, err := s.remote.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	patch, entry, err := applyApprove(r, mod, comment, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.sync.PushPatch(ctx, r, patch); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, entry)
	s.notifyAuthor(ctx, r, notification.TypeReportApproved,
		fmt.Sprintf("Your report %q was approved", r.Title))

	log.Info().Str("report_id", id.String()).Str("moderator", mod.Signature()).Msg("Report approved")
	return r, nil
}

// Reject transitions a pending report to Rejected. The reason is
// mandatory and recorded on both the report and the audit entry.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, mod Moderator, reason string) (*Report, error) {
	r, err := s.remote.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	patch, entry, err := applyReject(r, mod, reason, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.sync.PushPatch(ctx, r, patch); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, entry)
	s.notifyAuthor(ctx, r, notification.TypeReportRejected,
		fmt.Sprintf("Your report %q was rejected: %s", r.Title, reason))

	log.Info().Str("report_id", id.String()).Str("moderator", mod.Signature()).Msg("Report rejected")
	return r, nil
}

// Edit overwrites the supplied content fields and records which fields
// changed in the audit entry
func (s *Service) Edit(ctx context.Context, id uuid.UUID, mod Moderator, fields EditFields) (*Report, error) {
	r, err := s.remote.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	patch, entry, err := applyEdit(r, mod, fields, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.sync.PushPatch(ctx, r, patch); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, entry)

	log.Info().Str("report_id", id.String()).Str("moderator", mod.Signature()).Msg("Report edited")
	return r, nil
}

// RequestInfo asks the report's author for more details. The report is
// not mutated; the effect is a notification record at the remote store
// plus an audit entry.
func (s *Service) RequestInfo(ctx context.Context, id uuid.UUID, mod Moderator, message string) error {
	r, err := s.remote.GetReport(ctx, id)
	if err != nil {
		return err
	}

	entry, err := validateRequestInfo(r, mod, message, s.now())
	if err != nil {
		return err
	}

	n := notification.New(r.UserID, notification.TypeRequestInfo, message, r.ID)
	if err := s.remote.PutNotification(ctx, n); err != nil {
		return err
	}

	s.appendAudit(ctx, entry)

	log.Info().Str("report_id", id.String()).Str("moderator", mod.Signature()).Msg("More information requested")
	return nil
}

// Actor is the principal attempting a delete
type Actor struct {
	ID    string
	Admin bool
}

// Delete removes a report from both stores. Admins may delete any
// report; the owning user only while it is still pending.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !actor.Admin && (actor.ID != r.UserID || r.Status != StatusPending) {
		return ErrPermission
	}

	if err := s.sync.PushDelete(ctx, id); err != nil {
		return err
	}

	log.Info().Str("report_id", id.String()).Str("actor", actor.ID).Msg("Report deleted")
	return nil
}

// History returns the audit trail for a report, ordered by timestamp
func (s *Service) History(ctx context.Context, id uuid.UUID, newestFirst bool) ([]*HistoryEntry, error) {
	return s.remote.HistoryByReport(ctx, id, newestFirst)
}

// Stats aggregates moderation counts over the cached reports.
// pendingCount + approvedCount + rejectedCount = totalCount always;
// approvalRate is a rounded percentage, 0 when there are no reports.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.cache.Counts(ctx)
	if err != nil {
		return nil, err
	}

	rate := 0
	if counts.Total > 0 {
		rate = int(math.Round(float64(counts.Approved) / float64(counts.Total) * 100))
	}

	return &Stats{
		PendingCount:  counts.Pending,
		ApprovedCount: counts.Approved,
		RejectedCount: counts.Rejected,
		TotalCount:    counts.Total,
		ApprovalRate:  rate,
	}, nil
}

// Refresh runs a manual pull, returning the number of mirrored reports
func (s *Service) Refresh(ctx context.Context) (int, error) {
	return s.sync.Pull(ctx)
}

// appendAudit records a moderation action. A failed append leaves the
// audit trail incomplete but does not roll back the report mutation.
func (s *Service) appendAudit(ctx context.Context, entry *HistoryEntry) {
	if err := s.remote.AppendHistory(ctx, entry); err != nil {
		log.Error().
			Str("report_id", entry.ReportID.String()).
			Str("action", string(entry.Action)).
			Err(err).
			Msg("Report mutated but audit append failed")
	}
}

// notifyAuthor writes a notification record for the external dispatcher.
// Best effort: delivery problems never fail the moderation call.
func (s *Service) notifyAuthor(ctx context.Context, r *Report, t notification.Type, message string) {
	n := notification.New(r.UserID, t, message, r.ID)
	if err := s.remote.PutNotification(ctx, n); err != nil {
		log.Error().Str("report_id", r.ID.String()).Err(err).Msg("Failed to write notification record")
	}
}
