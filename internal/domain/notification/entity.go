package notification

import (
	"time"

	"github.com/google/uuid"
)

// Type represents notification type
type Type string

const (
	TypeRequestInfo    Type = "request_info"    // Author: moderator asked for more details
	TypeReportApproved Type = "report_approved" // Author: report is now public
	TypeReportRejected Type = "report_rejected" // Author: report was rejected
)

// Notification is a delivery request persisted at the remote store. The
// actual push/local delivery is done by an external dispatcher observing
// the notifications collection.
type Notification struct {
	ID          uuid.UUID `firestore:"id" json:"id"`
	RecipientID string    `firestore:"recipientId" json:"recipientId"`
	Type        Type      `firestore:"type" json:"type"`
	Message     string    `firestore:"message" json:"message"`
	ReportID    uuid.UUID `firestore:"reportId" json:"reportId"`
	CreatedAt   time.Time `firestore:"createdAt" json:"createdAt"`
}

// New builds a notification addressed to recipientID
func New(recipientID string, t Type, message string, reportID uuid.UUID) *Notification {
	return &Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Type:        t,
		Message:     message,
		ReportID:    reportID,
		CreatedAt:   time.Now(),
	}
}
