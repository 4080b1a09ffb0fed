// Package store is the persistence boundary of the entitlement subsystem.
// The interface exposes three capability classes: plain gets, idempotent
// upserts, and atomic read-modify-write units. Every method documented as
// atomic must execute as a single atomic unit in the implementation; callers
// rely on that contract instead of on incidental database behavior.
package store

import (
	"adgate/models"
	"errors"
)

var ErrTicketNotFound = errors.New("ticket not found")
var ErrTicketUsed = errors.New("ticket already used")

// Store is the capability set required by the entitlement services.
type Store interface {
	// ListApps returns the catalog ordered by category then app key.
	ListApps() ([]models.AppSetting, error)

	// GetApp fetches one catalog row; (nil, nil) when the key is unknown.
	GetApp(appKey string) (*models.AppSetting, error)

	// PatchApp updates free_limit/enabled in place. found is false when no
	// such app exists; catalog rows are never created here.
	PatchApp(appKey string, freeLimit int, enabled bool) (found bool, err error)

	// EnsureQuota creates the (device, app) quota row with zeros if absent.
	// Idempotent upsert: concurrent first-touches must not create duplicate
	// rows or overwrite existing counters.
	EnsureQuota(deviceID, appKey string) error

	// GetQuota fetches a quota row; (nil, nil) when absent (reads as zeros).
	GetQuota(deviceID, appKey string) (*models.QuotaRecord, error)

	// DebitFree increments free_used by one only while free_used < freeLimit.
	// The eligibility check and the debit are one atomic update; ok reports
	// whether the debit happened.
	DebitFree(deviceID, appKey string, freeLimit int) (ok bool, err error)

	// DebitCredit decrements ad_credits by one only while ad_credits > 0.
	// Same atomicity contract as DebitFree.
	DebitCredit(deviceID, appKey string) (ok bool, err error)

	// CreateTicket persists a freshly issued, unused ticket.
	CreateTicket(t *models.AdTicket) error

	// GetTicket fetches a ticket by id; (nil, nil) when absent.
	GetTicket(ticketID string) (*models.AdTicket, error)

	// RedeemTicket marks the ticket used and grants one ad credit to its
	// (device, app) pair in a single transaction. The used transition is
	// guarded, so exactly one caller ever succeeds for a given ticket id.
	// A ticket not bound to the presented pair reports ErrTicketNotFound;
	// a replay reports ErrTicketUsed.
	RedeemTicket(ticketID, deviceID, appKey string) error

	// RecordEvent appends an audit event, pruning beyond maxRows.
	RecordEvent(e *models.AdEvent, maxRows int) error

	// RecentEvents returns up to limit events, newest first.
	RecentEvents(limit int) ([]models.AdEvent, error)

	// RecordError appends a service fault record, pruning beyond maxRows.
	RecordError(l *models.ErrorLog, maxRows int) error

	// RecentErrors returns up to limit error logs, newest first.
	RecentErrors(limit int) ([]models.ErrorLog, error)

	// ClearErrors removes all error logs.
	ClearErrors() error
}
