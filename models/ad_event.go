package models

import "time"

// Ad event kinds recorded by the entitlement services.
const (
	AdEventIssued   = "issued"
	AdEventRedeemed = "redeemed"
	AdEventRejected = "rejected"
	AdEventReplayed = "replayed"
)

// AdEvent is one audit entry for the ticket lifecycle. Events are pruned to a
// configured cap; they are diagnostics, not part of the entitlement state.
type AdEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Kind      string    `gorm:"not null;size:16" json:"kind"`
	DeviceID  string    `gorm:"not null;size:128" json:"device_id"`
	AppKey    string    `gorm:"not null;size:64" json:"app_key"`
	TicketID  string    `gorm:"size:36" json:"ticket_id"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

func (AdEvent) TableName() string {
	return "ad_events"
}
