package service

import (
	"adgate/models"
	"adgate/store"
	"fmt"
)

// defaultFreeLimit applies to app keys missing from the catalog. Unknown keys
// are not an error: a newly deployed mini-app may reach the quota API before
// its catalog row lands.
const defaultFreeLimit = 1

// AppService handles the mini-application registry
type AppService struct {
	store store.Store
}

// NewAppService constructs an app registry service
func NewAppService(st store.Store) *AppService {
	return &AppService{store: st}
}

// List returns the catalog ordered by category then app key
func (s *AppService) List() ([]models.AppSetting, error) {
	apps, err := s.store.ListApps()
	if err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}
	return apps, nil
}

// FreeLimit returns the free-use limit for an app key, defaulting to 1 for
// unknown keys.
func (s *AppService) FreeLimit(appKey string) (int, error) {
	app, err := s.store.GetApp(appKey)
	if err != nil {
		return 0, fmt.Errorf("failed to read free limit: %w", err)
	}
	if app == nil {
		return defaultFreeLimit, nil
	}
	return app.FreeLimit, nil
}

// Patch updates an app's free limit and enabled flag. The limit is clamped
// to zero; an omitted enabled field keeps the app enabled.
func (s *AppService) Patch(req models.AppSettingPatch) error {
	req.Normalize()

	freeLimit := req.FreeLimit
	if freeLimit < 0 {
		freeLimit = 0
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	found, err := s.store.PatchApp(req.AppKey, freeLimit, enabled)
	if err != nil {
		return fmt.Errorf("failed to patch app: %w", err)
	}
	if !found {
		return wrapSentinel(fmt.Sprintf("app not found: %s", req.AppKey), ErrAppNotFound)
	}
	return nil
}
