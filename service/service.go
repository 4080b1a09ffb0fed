package service

import (
	"adgate/state"
	"adgate/store"
)

// Services is the global service container
type Services struct {
	App    *AppService
	Quota  *QuotaService
	Ticket *TicketService
	Event  *EventService
}

// GlobalServices is the global service instance
var GlobalServices *Services

// InitServices initializes all services over a storage backend
func InitServices(st store.Store, locks *state.KeyedLocks) {
	eventSvc := NewEventService(st)
	appSvc := NewAppService(st)
	quotaSvc := NewQuotaService(st, locks, appSvc, eventSvc)
	ticketSvc := NewTicketService(st, quotaSvc, eventSvc)

	GlobalServices = &Services{
		App:    appSvc,
		Quota:  quotaSvc,
		Ticket: ticketSvc,
		Event:  eventSvc,
	}
}
