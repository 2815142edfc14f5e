package report

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alertavecinal/alerta-api/internal/domain/notification"
)

// RemoteStore is the authoritative document store for reports, the
// moderation audit trail and notification records. Every call is a
// network round trip and may fail with ErrNetwork or ErrNotFound.
// No multi-document transaction is assumed across collections.
type RemoteStore interface {
	PutReport(ctx context.Context, r *Report) error
	GetReport(ctx context.Context, id uuid.UUID) (*Report, error)
	QueryReports(ctx context.Context) ([]*Report, error)
	PatchReport(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	DeleteReport(ctx context.Context, id uuid.UUID) error

	AppendHistory(ctx context.Context, e *HistoryEntry) error
	HistoryByReport(ctx context.Context, reportID uuid.UUID, newestFirst bool) ([]*HistoryEntry, error)

	PutNotification(ctx context.Context, n *notification.Notification) error
}

const (
	reportsCollection       = "reports"
	historyCollection       = "moderation_history"
	notificationsCollection = "notifications"
)

// reportDoc is the wire shape of a report document: camelCase keys,
// string ids, explicit enum text. Kept separate from the entity so the
// storage encoding never depends on Go field names.
type reportDoc struct {
	ID               string     `firestore:"id"`
	UserID           string     `firestore:"userId"`
	UserName         string     `firestore:"userName"`
	Title            string     `firestore:"title"`
	Description      string     `firestore:"description"`
	ReportType       string     `firestore:"reportType"`
	Status           string     `firestore:"status"`
	Latitude         float64    `firestore:"latitude"`
	Longitude        float64    `firestore:"longitude"`
	Address          *string    `firestore:"address"`
	ImageURL         *string    `firestore:"imageUrl"`
	CreatedAt        time.Time  `firestore:"createdAt"`
	UpdatedAt        time.Time  `firestore:"updatedAt"`
	ApprovedBy       *string    `firestore:"approvedBy"`
	RejectionReason  *string    `firestore:"rejectionReason"`
	EditedBy         *string    `firestore:"editedBy"`
	LastEditAt       *time.Time `firestore:"lastEditAt"`
	ModeratorComment *string    `firestore:"moderatorComment"`
	IsSynced         bool       `firestore:"isSynced"`
}

func toReportDoc(r *Report) *reportDoc {
	return &reportDoc{
		ID:               r.ID.String(),
		UserID:           r.UserID,
		UserName:         r.UserName,
		Title:            r.Title,
		Description:      r.Description,
		ReportType:       string(r.Type),
		Status:           string(r.Status),
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		Address:          r.Address,
		ImageURL:         r.ImageURL,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		ApprovedBy:       r.ApprovedBy,
		RejectionReason:  r.RejectionReason,
		EditedBy:         r.EditedBy,
		LastEditAt:       r.LastEditAt,
		ModeratorComment: r.ModeratorComment,
		IsSynced:         r.IsSynced,
	}
}

func fromReportDoc(d *reportDoc) (*Report, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("report document has invalid id %q", d.ID)
	}
	reportType, ok := ParseReportType(d.ReportType)
	if !ok {
		return nil, fmt.Errorf("report %s has unknown type %q", d.ID, d.ReportType)
	}
	reportStatus, ok := ParseStatus(d.Status)
	if !ok {
		return nil, fmt.Errorf("report %s has unknown status %q", d.ID, d.Status)
	}

	return &Report{
		ID:               id,
		UserID:           d.UserID,
		UserName:         d.UserName,
		Title:            d.Title,
		Description:      d.Description,
		Type:             reportType,
		Status:           reportStatus,
		Latitude:         d.Latitude,
		Longitude:        d.Longitude,
		Address:          d.Address,
		ImageURL:         d.ImageURL,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		ApprovedBy:       d.ApprovedBy,
		RejectionReason:  d.RejectionReason,
		EditedBy:         d.EditedBy,
		LastEditAt:       d.LastEditAt,
		ModeratorComment: d.ModeratorComment,
		IsSynced:         d.IsSynced,
	}, nil
}

// historyDoc is the wire shape of an audit entry
type historyDoc struct {
	ID            string            `firestore:"id"`
	ReportID      string            `firestore:"reportId"`
	ModeratorID   string            `firestore:"moderatorId"`
	ModeratorName string            `firestore:"moderatorName"`
	Action        string            `firestore:"action"`
	Comment       *string           `firestore:"comment"`
	Changes       map[string]string `firestore:"changes"`
	Timestamp     time.Time         `firestore:"timestamp"`
}

func toHistoryDoc(e *HistoryEntry) *historyDoc {
	return &historyDoc{
		ID:            e.ID.String(),
		ReportID:      e.ReportID.String(),
		ModeratorID:   e.ModeratorID,
		ModeratorName: e.ModeratorName,
		Action:        string(e.Action),
		Comment:       e.Comment,
		Changes:       e.Changes,
		Timestamp:     e.Timestamp,
	}
}

func fromHistoryDoc(d *historyDoc) (*HistoryEntry, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("history document has invalid id %q", d.ID)
	}
	reportID, err := uuid.Parse(d.ReportID)
	if err != nil {
		return nil, fmt.Errorf("history %s has invalid report id %q", d.ID, d.ReportID)
	}
	action, ok := ParseModerationAction(d.Action)
	if !ok {
		return nil, fmt.Errorf("history %s has unknown action %q", d.ID, d.Action)
	}

	return &HistoryEntry{
		ID:            id,
		ReportID:      reportID,
		ModeratorID:   d.ModeratorID,
		ModeratorName: d.ModeratorName,
		Action:        action,
		Comment:       d.Comment,
		Changes:       d.Changes,
		Timestamp:     d.Timestamp,
	}, nil
}

type firestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates the Firestore-backed remote store
func NewFirestoreStore(client *firestore.Client) RemoteStore {
	return &firestoreStore{client: client}
}

// remoteErr maps transport failures into the package error taxonomy
func remoteErr(op string, err error) error {
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %s: %v", ErrNetwork, op, err)
}

func (s *firestoreStore) PutReport(ctx context.Context, r *Report) error {
	_, err := s.client.Collection(reportsCollection).Doc(r.ID.String()).Set(ctx, toReportDoc(r))
	if err != nil {
		return remoteErr("put report", err)
	}
	return nil
}

func (s *firestoreStore) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	doc, err := s.client.Collection(reportsCollection).Doc(id.String()).Get(ctx)
	if err != nil {
		return nil, remoteErr("get report", err)
	}

	var d reportDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, fmt.Errorf("%w: parse report %s: %v", ErrNetwork, id, err)
	}
	return fromReportDoc(&d)
}

func (s *firestoreStore) QueryReports(ctx context.Context) ([]*Report, error) {
	iter := s.client.Collection(reportsCollection).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var reports []*Report
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, remoteErr("query reports", err)
		}

		var d reportDoc
		if err := doc.DataTo(&d); err != nil {
			log.Warn().Str("doc", doc.Ref.ID).Err(err).Msg("Skipping unparseable report document")
			continue
		}
		r, err := fromReportDoc(&d)
		if err != nil {
			log.Warn().Str("doc", doc.Ref.ID).Err(err).Msg("Skipping invalid report document")
			continue
		}
		reports = append(reports, r)
	}

	return reports, nil
}

func (s *firestoreStore) PatchReport(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(fields)+1)
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}

	// approvedAt is server-computed, set only when a report becomes approved
	if st, ok := fields["status"]; ok && st == string(StatusApproved) {
		updates = append(updates, firestore.Update{Path: "approvedAt", Value: firestore.ServerTimestamp})
	}

	_, err := s.client.Collection(reportsCollection).Doc(id.String()).Update(ctx, updates)
	if err != nil {
		return remoteErr("patch report", err)
	}
	return nil
}

func (s *firestoreStore) DeleteReport(ctx context.Context, id uuid.UUID) error {
	_, err := s.client.Collection(reportsCollection).Doc(id.String()).Delete(ctx)
	if err != nil {
		return remoteErr("delete report", err)
	}
	return nil
}

func (s *firestoreStore) AppendHistory(ctx context.Context, e *HistoryEntry) error {
	_, err := s.client.Collection(historyCollection).Doc(e.ID.String()).Create(ctx, toHistoryDoc(e))
	if err != nil {
		return remoteErr("append history", err)
	}
	return nil
}

func (s *firestoreStore) HistoryByReport(ctx context.Context, reportID uuid.UUID, newestFirst bool) ([]*HistoryEntry, error) {
	dir := firestore.Asc
	if newestFirst {
		dir = firestore.Desc
	}

	iter := s.client.Collection(historyCollection).
		Where("reportId", "==", reportID.String()).
		OrderBy("timestamp", dir).
		Documents(ctx)
	defer iter.Stop()

	var entries []*HistoryEntry
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, remoteErr("query history", err)
		}

		var d historyDoc
		if err := doc.DataTo(&d); err != nil {
			log.Warn().Str("doc", doc.Ref.ID).Err(err).Msg("Skipping unparseable history document")
			continue
		}
		e, err := fromHistoryDoc(&d)
		if err != nil {
			log.Warn().Str("doc", doc.Ref.ID).Err(err).Msg("Skipping invalid history document")
			continue
		}
		entries = append(entries, e)
	}

	return entries, nil
}

func (s *firestoreStore) PutNotification(ctx context.Context, n *notification.Notification) error {
	_, err := s.client.Collection(notificationsCollection).Doc(n.ID.String()).Set(ctx, n)
	if err != nil {
		return remoteErr("put notification", err)
	}
	return nil
}
