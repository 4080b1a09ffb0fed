package service

import (
	"adgate/config"
	"adgate/models"
	"adgate/store"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TicketService mints and redeems signed single-use ad tickets. A ticket
// proves only that this server issued it for a (device, app) pair; whether
// the ad actually played is the ad network's problem.
type TicketService struct {
	store  store.Store
	quota  *QuotaService
	events *EventService
}

// NewTicketService constructs a ticket service
func NewTicketService(st store.Store, quota *QuotaService, events *EventService) *TicketService {
	return &TicketService{store: st, quota: quota, events: events}
}

// sign computes the deterministic ticket MAC: HMAC-SHA256 over
// "device:app:ticket" with the server secret, hex encoded.
func sign(secret, deviceID, appKey, ticketID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s:%s:%s", deviceID, appKey, ticketID)
	return hex.EncodeToString(mac.Sum(nil))
}

// Issue mints a signed single-use ticket for a (device, app) pair. Fails
// with ErrSecretUnconfigured when no signing secret is set; unsigned tickets
// would make the whole scheme forgeable.
func (s *TicketService) Issue(deviceID, appKey string) (*models.TicketGrant, error) {
	secret := config.Settings.AdUnlockSecret
	if secret == "" {
		return nil, wrapSentinel("ad unlock is not configured on this server", ErrSecretUnconfigured)
	}

	ticketID := uuid.NewString()
	signature := sign(secret, deviceID, appKey, ticketID)

	ticket := &models.AdTicket{
		TicketID:  ticketID,
		DeviceID:  deviceID,
		AppKey:    appKey,
		Signature: signature,
		Used:      false,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateTicket(ticket); err != nil {
		s.events.LogError("ticket", "issue failed", err.Error())
		return nil, fmt.Errorf("failed to issue ticket: %w", err)
	}

	s.events.Record(models.AdEventIssued, deviceID, appKey, ticketID, "")
	return &models.TicketGrant{TicketID: ticketID, Signature: signature}, nil
}

// VerifyAndRedeem validates a presented ticket and, exactly once per ticket,
// converts it into one ad credit. Signature mismatch, unknown ticket and a
// ticket bound to a different (device, app) pair all answer ErrTicketInvalid;
// only a replay is distinguished, as ErrTicketUsed.
func (s *TicketService) VerifyAndRedeem(deviceID, appKey, ticketID, signature string) (models.QuotaStatus, error) {
	expected := sign(config.Settings.AdUnlockSecret, deviceID, appKey, ticketID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		s.events.Record(models.AdEventRejected, deviceID, appKey, ticketID, "signature mismatch")
		return models.QuotaStatus{}, wrapSentinel("ticket verification failed", ErrTicketInvalid)
	}

	err := s.store.RedeemTicket(ticketID, deviceID, appKey)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrTicketNotFound):
			s.events.Record(models.AdEventRejected, deviceID, appKey, ticketID, "no matching ticket")
			return models.QuotaStatus{}, wrapSentinel("ticket verification failed", ErrTicketInvalid)
		case errors.Is(err, store.ErrTicketUsed):
			s.events.Record(models.AdEventReplayed, deviceID, appKey, ticketID, "")
			return models.QuotaStatus{}, wrapSentinel("ticket already claimed", ErrTicketUsed)
		default:
			s.events.LogError("ticket", "redeem failed", err.Error())
			return models.QuotaStatus{}, fmt.Errorf("failed to redeem ticket: %w", err)
		}
	}

	s.events.Record(models.AdEventRedeemed, deviceID, appKey, ticketID, "")
	return s.quota.Status(deviceID, appKey)
}
