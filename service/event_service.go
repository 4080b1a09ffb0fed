package service

import (
	"adgate/config"
	"adgate/models"
	"adgate/store"
	"log"
	"time"
)

// EventService persists the ticket audit trail and service fault records.
// Both are diagnostics: failures to write them are logged and swallowed so
// they never fail the operation they describe.
type EventService struct {
	store store.Store
}

// NewEventService constructs an event service
func NewEventService(st store.Store) *EventService {
	return &EventService{store: st}
}

// Record appends one ad event
func (s *EventService) Record(kind, deviceID, appKey, ticketID, detail string) {
	event := &models.AdEvent{
		Kind:      kind,
		DeviceID:  deviceID,
		AppKey:    appKey,
		TicketID:  ticketID,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.RecordEvent(event, config.Settings.MaxAdEvents); err != nil {
		log.Printf("Failed to record ad event: %v", err)
	}
}

// Recent returns up to limit ad events, newest first
func (s *EventService) Recent(limit int) ([]models.AdEvent, error) {
	return s.store.RecentEvents(limit)
}

// LogError records an unexpected service fault
func (s *EventService) LogError(source, message, detail string) {
	entry := &models.ErrorLog{
		Timestamp: time.Now().UTC(),
		Level:     "ERROR",
		Source:    source,
		Message:   message,
		Detail:    detail,
	}
	if err := s.store.RecordError(entry, config.Settings.MaxErrorLogs); err != nil {
		log.Printf("Failed to record error log: %v", err)
	}
	log.Printf("[%s] %s: %s", source, message, detail)
}

// RecentErrors returns up to limit error logs, newest first
func (s *EventService) RecentErrors(limit int) ([]models.ErrorLog, error) {
	return s.store.RecentErrors(limit)
}

// ClearErrors removes all error logs
func (s *EventService) ClearErrors() error {
	return s.store.ClearErrors()
}
