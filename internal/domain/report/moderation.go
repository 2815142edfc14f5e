package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Moderator identifies who performs a moderation action
type Moderator struct {
	ID   string
	Name string
}

// Valid reports whether both identity fields are present
func (m Moderator) Valid() bool {
	return strings.TrimSpace(m.ID) != "" && strings.TrimSpace(m.Name) != ""
}

// Signature is the display identity recorded on the report: "name (id)"
func (m Moderator) Signature() string {
	return fmt.Sprintf("%s (%s)", m.Name, m.ID)
}

// EditFields are the content fields a moderator may overwrite. A nil
// field means "leave unchanged".
type EditFields struct {
	Title       *string
	Description *string
	Type        *ReportType
	Address     *string
}

func (f EditFields) empty() bool {
	return f.Title == nil && f.Description == nil && f.Type == nil && f.Address == nil
}

// The transition functions below are the moderation state machine. Each
// validates its precondition, mutates the passed report in place, and
// returns the remote patch plus the single audit entry for the action.
// On error the report is untouched and no entry is produced. Concurrent
// transitions on the same report are not serialized here; the remote
// store's last-writer-wins policy decides the stored outcome.

// applyApprove transitions Pending -> Approved
func applyApprove(r *Report, mod Moderator, comment string, now time.Time) (map[string]interface{}, *HistoryEntry, error) {
	if !mod.Valid() {
		return nil, nil, ErrMissingModerator
	}
	if r.Status != StatusPending {
		return nil, nil, ErrNotPending
	}

	signature := mod.Signature()
	r.Status = StatusApproved
	r.ApprovedBy = &signature
	r.UpdatedAt = now

	patch := map[string]interface{}{
		"status":     string(StatusApproved),
		"approvedBy": signature,
		"updatedAt":  now,
	}

	var commentPtr *string
	if strings.TrimSpace(comment) != "" {
		c := comment
		r.ModeratorComment = &c
		patch["moderatorComment"] = comment
		commentPtr = &c
	}

	return patch, newHistoryEntry(r.ID, mod, ActionApprove, commentPtr, nil, now), nil
}

// applyReject transitions Pending -> Rejected; reason is mandatory
func applyReject(r *Report, mod Moderator, reason string, now time.Time) (map[string]interface{}, *HistoryEntry, error) {
	if !mod.Valid() {
		return nil, nil, ErrMissingModerator
	}
	if strings.TrimSpace(reason) == "" {
		return nil, nil, ErrEmptyReason
	}
	if r.Status != StatusPending {
		return nil, nil, ErrNotPending
	}

	signature := mod.Signature()
	r.Status = StatusRejected
	r.ApprovedBy = &signature
	r.RejectionReason = &reason
	r.UpdatedAt = now

	patch := map[string]interface{}{
		"status":          string(StatusRejected),
		"approvedBy":      signature,
		"rejectionReason": reason,
		"updatedAt":       now,
	}

	return patch, newHistoryEntry(r.ID, mod, ActionReject, &reason, nil, now), nil
}

// applyEdit overwrites supplied content fields; legal from any status
func applyEdit(r *Report, mod Moderator, fields EditFields, now time.Time) (map[string]interface{}, *HistoryEntry, error) {
	if !mod.Valid() {
		return nil, nil, ErrMissingModerator
	}
	if fields.empty() {
		return nil, nil, ErrNothingToEdit
	}

	signature := mod.Signature()
	patch := map[string]interface{}{
		"editedBy":   signature,
		"lastEditAt": now,
		"updatedAt":  now,
	}
	changes := make(map[string]string)

	if fields.Title != nil {
		r.Title = *fields.Title
		patch["title"] = *fields.Title
		changes["title"] = *fields.Title
	}
	if fields.Description != nil {
		r.Description = *fields.Description
		patch["description"] = *fields.Description
		changes["description"] = *fields.Description
	}
	if fields.Type != nil {
		r.Type = *fields.Type
		patch["reportType"] = string(*fields.Type)
		changes["reportType"] = string(*fields.Type)
	}
	if fields.Address != nil {
		r.Address = fields.Address
		patch["address"] = *fields.Address
		changes["address"] = *fields.Address
	}

	r.EditedBy = &signature
	editAt := now
	r.LastEditAt = &editAt
	r.UpdatedAt = now

	return patch, newHistoryEntry(r.ID, mod, ActionEdit, nil, changes, now), nil
}

// validateRequestInfo checks the RequestInfo precondition and builds its
// audit entry. The report itself is never mutated; the side effect is a
// notification record addressed to the author.
func validateRequestInfo(r *Report, mod Moderator, message string, now time.Time) (*HistoryEntry, error) {
	if !mod.Valid() {
		return nil, ErrMissingModerator
	}
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	if r.Status != StatusPending {
		return nil, ErrNotPending
	}

	return newHistoryEntry(r.ID, mod, ActionRequestInfo, &message, nil, now), nil
}

func newHistoryEntry(reportID uuid.UUID, mod Moderator, action ModerationAction, comment *string, changes map[string]string, now time.Time) *HistoryEntry {
	return &HistoryEntry{
		ID:            uuid.New(),
		ReportID:      reportID,
		ModeratorID:   mod.ID,
		ModeratorName: mod.Name,
		Action:        action,
		Comment:       comment,
		Changes:       changes,
		Timestamp:     now,
	}
}
