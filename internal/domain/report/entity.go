package report

import (
	"time"

	"github.com/google/uuid"
)

// ReportType is the closed set of incident categories
type ReportType string

const (
	TypeRobbery          ReportType = "robbery"
	TypeFire             ReportType = "fire"
	TypeAccident         ReportType = "accident"
	TypeSuspiciousPerson ReportType = "suspicious_person"
	TypeFight            ReportType = "fight"
	TypeVandalism        ReportType = "vandalism"
	TypeNoise            ReportType = "noise"
	TypeLostPet          ReportType = "lost_pet"
	TypeOther            ReportType = "other"
)

// Types returns every valid report type
func Types() []ReportType {
	return []ReportType{
		TypeRobbery, TypeFire, TypeAccident, TypeSuspiciousPerson,
		TypeFight, TypeVandalism, TypeNoise, TypeLostPet, TypeOther,
	}
}

// ParseReportType decodes a persisted type string. Decoding is an explicit
// membership check so renaming a constant cannot silently corrupt stored data.
func ParseReportType(s string) (ReportType, bool) {
	for _, t := range Types() {
		if s == string(t) {
			return t, true
		}
	}
	return "", false
}

// Status is the moderation status of a report
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus decodes a persisted status string
func ParseStatus(s string) (Status, bool) {
	switch s {
	case string(StatusPending):
		return StatusPending, true
	case string(StatusApproved):
		return StatusApproved, true
	case string(StatusRejected):
		return StatusRejected, true
	}
	return "", false
}

// ModerationAction identifies an audit log entry
type ModerationAction string

const (
	ActionApprove     ModerationAction = "approve"
	ActionReject      ModerationAction = "reject"
	ActionEdit        ModerationAction = "edit"
	ActionRequestInfo ModerationAction = "request_info"
)

// ParseModerationAction decodes a persisted action string
func ParseModerationAction(s string) (ModerationAction, bool) {
	switch s {
	case string(ActionApprove):
		return ActionApprove, true
	case string(ActionReject):
		return ActionReject, true
	case string(ActionEdit):
		return ActionEdit, true
	case string(ActionRequestInfo):
		return ActionRequestInfo, true
	}
	return "", false
}

// Report is a user-submitted incident record. The remote store is the
// authority; IsSynced is true only once the local cache mirrors the
// confirmed remote version.
type Report struct {
	ID          uuid.UUID  `json:"id"`
	UserID      string     `json:"userId"`
	UserName    string     `json:"userName"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        ReportType `json:"reportType"`
	Status      Status     `json:"status"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Address     *string    `json:"address,omitempty"`
	ImageURL    *string    `json:"imageUrl,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Moderation metadata; ApprovedBy and EditedBy hold "name (id)"
	ApprovedBy       *string    `json:"approvedBy,omitempty"`
	RejectionReason  *string    `json:"rejectionReason,omitempty"`
	EditedBy         *string    `json:"editedBy,omitempty"`
	LastEditAt       *time.Time `json:"lastEditAt,omitempty"`
	ModeratorComment *string    `json:"moderatorComment,omitempty"`

	IsSynced bool `json:"isSynced"`
}

// Urgent reports whether this report needs priority attention
func (r *Report) Urgent() bool {
	if r.Status != StatusPending {
		return false
	}
	switch r.Type {
	case TypeRobbery, TypeFire, TypeAccident, TypeFight:
		return true
	}
	return false
}

// Visible reports whether the report may appear on public views.
// includePending admits pending reports (the map view does this);
// rejected reports are never visible.
func (r *Report) Visible(includePending bool) bool {
	if r.Status == StatusApproved {
		return true
	}
	return includePending && r.Status == StatusPending
}

// Clone returns a deep copy so moderation transitions can work on a
// scratch copy and leave the caller's value untouched on failure
func (r *Report) Clone() *Report {
	c := *r
	c.Address = clonePtr(r.Address)
	c.ImageURL = clonePtr(r.ImageURL)
	c.ApprovedBy = clonePtr(r.ApprovedBy)
	c.RejectionReason = clonePtr(r.RejectionReason)
	c.EditedBy = clonePtr(r.EditedBy)
	c.LastEditAt = clonePtr(r.LastEditAt)
	c.ModeratorComment = clonePtr(r.ModeratorComment)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// HistoryEntry is one append-only audit record for a moderation action
type HistoryEntry struct {
	ID            uuid.UUID         `json:"id"`
	ReportID      uuid.UUID         `json:"reportId"`
	ModeratorID   string            `json:"moderatorId"`
	ModeratorName string            `json:"moderatorName"`
	Action        ModerationAction  `json:"action"`
	Comment       *string           `json:"comment,omitempty"`
	Changes       map[string]string `json:"changes,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// Stats aggregates moderation counts over the cached reports
type Stats struct {
	PendingCount  int `json:"pendingCount"`
	ApprovedCount int `json:"approvedCount"`
	RejectedCount int `json:"rejectedCount"`
	TotalCount    int `json:"totalCount"`
	ApprovalRate  int `json:"approvalRate"`
}
