package models

import (
	"strings"
	"time"
)

// AppSetting is one mini-application in the catalog. Rows are seeded at first
// boot and never deleted; identity (AppKey) is immutable, FreeLimit and
// Enabled are adjustable through the admin API.
type AppSetting struct {
	AppKey    string `gorm:"primaryKey;size:64" json:"app_key"`
	Category  string `gorm:"not null" json:"category"`
	Title     string `gorm:"not null" json:"title"`
	FreeLimit int    `gorm:"not null;default:1" json:"free_limit"`
	Enabled   bool   `gorm:"not null;default:true" json:"enabled"`
}

// TableName keeps the table name used by the original schema
func (AppSetting) TableName() string {
	return "app_settings"
}

// QuotaRecord tracks per (device, app) consumption. Rows are created lazily
// on first touch and never deleted. FreeUsed only grows; AdCredits grows via
// verified ticket redemption and shrinks via consumption.
type QuotaRecord struct {
	DeviceID  string    `gorm:"primaryKey;size:128" json:"device_id"`
	AppKey    string    `gorm:"primaryKey;size:64" json:"app_key"`
	FreeUsed  int       `gorm:"not null;default:0" json:"free_used"`
	AdCredits int       `gorm:"not null;default:0" json:"ad_credits"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QuotaRecord) TableName() string {
	return "app_quota"
}

// AdTicket is a single-use signed proof that one rewarded ad was watched.
// A ticket is owned by the issuing (device, app) pair; Used transitions 0->1
// exactly once.
type AdTicket struct {
	TicketID  string    `gorm:"primaryKey;size:36" json:"ticket_id"`
	DeviceID  string    `gorm:"not null;index;size:128" json:"device_id"`
	AppKey    string    `gorm:"not null;size:64" json:"app_key"`
	Signature string    `gorm:"not null" json:"signature"`
	Used      bool      `gorm:"not null;default:false" json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

func (AdTicket) TableName() string {
	return "ad_tickets"
}

// QuotaStatus is the client-facing view of a quota record.
type QuotaStatus struct {
	DeviceID      string `json:"device_id"`
	AppKey        string `json:"app_key"`
	FreeLimit     int    `json:"free_limit"`
	FreeRemaining int    `json:"free_remaining"`
	AdCredits     int    `json:"ad_credits"`
	CanUse        bool   `json:"can_use"`
}

// TicketGrant is the response to a ticket issue request.
type TicketGrant struct {
	TicketID  string `json:"ticket_id"`
	Signature string `json:"signature"`
}

// DeviceRequest identifies a (device, app) pair in client requests.
type DeviceRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
	AppKey   string `json:"app_key"`
}

// Normalize trims whitespace and applies the default app key
func (r *DeviceRequest) Normalize() {
	r.DeviceID = strings.TrimSpace(r.DeviceID)
	r.AppKey = strings.TrimSpace(r.AppKey)
	if r.AppKey == "" {
		r.AppKey = DefaultAppKey
	}
}

// AdVerifyRequest carries a ticket back for redemption.
type AdVerifyRequest struct {
	DeviceID  string `json:"device_id" binding:"required"`
	AppKey    string `json:"app_key"`
	TicketID  string `json:"ticket_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// Normalize trims whitespace and applies the default app key
func (r *AdVerifyRequest) Normalize() {
	r.DeviceID = strings.TrimSpace(r.DeviceID)
	r.AppKey = strings.TrimSpace(r.AppKey)
	r.TicketID = strings.TrimSpace(r.TicketID)
	r.Signature = strings.TrimSpace(r.Signature)
	if r.AppKey == "" {
		r.AppKey = DefaultAppKey
	}
}

// AppSettingPatch is the admin request to adjust an app's quota settings.
// Enabled is a pointer so an omitted field keeps the default (enabled).
type AppSettingPatch struct {
	AppKey    string `json:"app_key" binding:"required"`
	FreeLimit int    `json:"free_limit"`
	Enabled   *bool  `json:"enabled"`
}

// Normalize trims whitespace from input fields
func (r *AppSettingPatch) Normalize() {
	r.AppKey = strings.TrimSpace(r.AppKey)
}

// DefaultAppKey is assumed when a client omits app_key, matching the first
// deployed quiz application.
const DefaultAppKey = "chuangye"
