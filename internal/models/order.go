package models

import "strings"

// GTTStatus is the lifecycle state of a Good Till Triggered order group.
type GTTStatus string

const (
	GTTActive    GTTStatus = "active"
	GTTTriggered GTTStatus = "triggered"
	GTTDisabled  GTTStatus = "disabled"
	GTTExpired   GTTStatus = "expired"
	GTTCancelled GTTStatus = "cancelled"
	GTTRejected  GTTStatus = "rejected"
	GTTDeleted   GTTStatus = "deleted"
)

// IsActive reports whether the status is "active", ignoring case.
// Only active groups can still fire and therefore protect a position.
func (s GTTStatus) IsActive() bool {
	return strings.EqualFold(strings.TrimSpace(string(s)), string(GTTActive))
}
