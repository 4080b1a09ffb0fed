package service

import (
	"adgate/models"
	"errors"
	"sync"
	"testing"
)

func TestIssueAndRedeem_RoundTrip(t *testing.T) {
	svc, _ := newTestServices(t)
	setSecret(t, "test-secret")

	grant, err := svc.Ticket.Issue("dev1", "chuangye")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if grant.TicketID == "" || grant.Signature == "" {
		t.Fatalf("incomplete grant: %+v", grant)
	}

	status, err := svc.Ticket.VerifyAndRedeem("dev1", "chuangye", grant.TicketID, grant.Signature)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if status.AdCredits != 1 {
		t.Fatalf("expected one credit, got %+v", status)
	}
}

func TestRedeem_ReplayRejected(t *testing.T) {
	svc, _ := newTestServices(t)
	setSecret(t, "test-secret")

	grant, err := svc.Ticket.Issue("dev1", "chuangye")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := svc.Ticket.VerifyAndRedeem("dev1", "chuangye", grant.TicketID, grant.Signature); err != nil {
		t.Fatalf("first redeem: %v", err)
	}

	for i := 0; i < 3; i++ {
		_, err := svc.Ticket.VerifyAndRedeem("dev1", "chuangye", grant.TicketID, grant.Signature)
		if !errors.Is(err, ErrTicketUsed) {
			t.Fatalf("replay #%d: expected ErrTicketUsed, got %v", i+1, err)
		}
	}

	status, err := svc.Quota.Status("dev1", "chuangye")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.AdCredits != 1 {
		t.Fatalf("replays must not grant extra credits, got %+v", status)
	}
}

func TestRedeem_TamperedSignature(t *testing.T) {
	svc, db := newTestServices(t)
	setSecret(t, "test-secret")

	grant, err := svc.Ticket.Issue("dev1", "chuangye")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Flip one hex character
	tampered := []byte(grant.Signature)
	if tampered[0] == 'a' {
		tampered[0] = 'b'
	} else {
		tampered[0] = 'a'
	}

	_, err = svc.Ticket.VerifyAndRedeem("dev1", "chuangye", grant.TicketID, string(tampered))
	if !errors.Is(err, ErrTicketInvalid) {
		t.Fatalf("expected ErrTicketInvalid, got %v", err)
	}

	var stored models.AdTicket
	if err := db.First(&stored, "ticket_id = ?", grant.TicketID).Error; err != nil {
		t.Fatalf("load ticket: %v", err)
	}
	if stored.Used {
		t.Fatalf("tampered redemption must not burn the ticket")
	}

	status, _ := svc.Quota.Status("dev1", "chuangye")
	if status.AdCredits != 0 {
		t.Fatalf("tampered redemption must not grant credit, got %+v", status)
	}
}

func TestRedeem_WrongDeviceRejectedGenerically(t *testing.T) {
	svc, _ := newTestServices(t)
	setSecret(t, "test-secret")

	grant, err := svc.Ticket.Issue("dev1", "chuangye")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// A foreign device with a correctly recomputed signature still fails,
	// and with the same error as a missing ticket.
	foreignSig := sign("test-secret", "dev2", "chuangye", grant.TicketID)
	_, err = svc.Ticket.VerifyAndRedeem("dev2", "chuangye", grant.TicketID, foreignSig)
	if !errors.Is(err, ErrTicketInvalid) {
		t.Fatalf("expected ErrTicketInvalid for foreign device, got %v", err)
	}

	// The rightful owner can still redeem
	if _, err := svc.Ticket.VerifyAndRedeem("dev1", "chuangye", grant.TicketID, grant.Signature); err != nil {
		t.Fatalf("owner redeem after foreign attempt: %v", err)
	}
}

func TestIssue_WithoutSecret(t *testing.T) {
	svc, db := newTestServices(t)
	setSecret(t, "")

	_, err := svc.Ticket.Issue("dev1", "chuangye")
	if !errors.Is(err, ErrSecretUnconfigured) {
		t.Fatalf("expected ErrSecretUnconfigured, got %v", err)
	}

	var count int64
	db.Model(&models.AdTicket{}).Count(&count)
	if count != 0 {
		t.Fatalf("no ticket row may be persisted without a secret, got %d", count)
	}
}

func TestRedeem_ConcurrentSingleGrant(t *testing.T) {
	svc, _ := newTestServices(t)
	setSecret(t, "test-secret")

	grant, err := svc.Ticket.Issue("dev1", "chuangye")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Ticket.VerifyAndRedeem("dev1", "chuangye", grant.TicketID, grant.Signature); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one concurrent redemption to succeed, got %d", successes)
	}

	status, _ := svc.Quota.Status("dev1", "chuangye")
	if status.AdCredits != 1 {
		t.Fatalf("expected exactly one credit, got %+v", status)
	}
}

func TestSign_Deterministic(t *testing.T) {
	a := sign("secret", "dev1", "chuangye", "t-1")
	b := sign("secret", "dev1", "chuangye", "t-1")
	if a != b {
		t.Fatalf("signature must be deterministic: %q vs %q", a, b)
	}
	if a == sign("secret", "dev2", "chuangye", "t-1") {
		t.Fatalf("signature must bind the device id")
	}
	if a == sign("other", "dev1", "chuangye", "t-1") {
		t.Fatalf("signature must depend on the secret")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex SHA-256 output, got %d chars", len(a))
	}
}
