package service

import (
	"adgate/models"
	"errors"
	"testing"
)

func TestFreeLimit_Defaults(t *testing.T) {
	svc, _ := newTestServices(t)

	limit, err := svc.App.FreeLimit("does-not-exist")
	if err != nil {
		t.Fatalf("free limit: %v", err)
	}
	if limit != 1 {
		t.Fatalf("expected default limit 1, got %d", limit)
	}

	limit, err = svc.App.FreeLimit("chuangye")
	if err != nil {
		t.Fatalf("free limit: %v", err)
	}
	if limit != 1 {
		t.Fatalf("expected seeded limit 1, got %d", limit)
	}
}

func TestPatch_ClampsNegativeLimit(t *testing.T) {
	svc, _ := newTestServices(t)

	err := svc.App.Patch(models.AppSettingPatch{AppKey: "chuangye", FreeLimit: -5})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}

	limit, err := svc.App.FreeLimit("chuangye")
	if err != nil {
		t.Fatalf("free limit: %v", err)
	}
	if limit != 0 {
		t.Fatalf("expected negative limit clamped to 0, got %d", limit)
	}
}

func TestPatch_UnknownApp(t *testing.T) {
	svc, _ := newTestServices(t)

	err := svc.App.Patch(models.AppSettingPatch{AppKey: "nope", FreeLimit: 2})
	if !errors.Is(err, ErrAppNotFound) {
		t.Fatalf("expected ErrAppNotFound, got %v", err)
	}
}

func TestPatch_OmittedEnabledStaysEnabled(t *testing.T) {
	svc, _ := newTestServices(t)

	if err := svc.App.Patch(models.AppSettingPatch{AppKey: "chuangye", FreeLimit: 3}); err != nil {
		t.Fatalf("patch: %v", err)
	}

	apps, err := svc.App.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, app := range apps {
		if app.AppKey == "chuangye" {
			if !app.Enabled || app.FreeLimit != 3 {
				t.Fatalf("expected enabled app with limit 3, got %+v", app)
			}
			return
		}
	}
	t.Fatalf("seeded app missing from list")
}
