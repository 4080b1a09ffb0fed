package handlers

import (
	"adgate/config"
	"adgate/database"
	"adgate/models"
	"adgate/service"
	"adgate/version"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// ListApps returns the mini-application catalog
func ListApps(c *gin.Context) {
	apps, err := service.GlobalServices.App.List()
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to list apps")
		return
	}
	ok(c, gin.H{"items": apps})
}

// PatchAppSetting adjusts an app's free limit and enabled flag
func PatchAppSetting(c *gin.Context) {
	var req models.AppSettingPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request")
		return
	}

	if err := service.GlobalServices.App.Patch(req); err != nil {
		if errors.Is(err, service.ErrAppNotFound) {
			fail(c, http.StatusNotFound, CodeNotFound, "Unknown app key")
			return
		}
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to update app setting")
		return
	}
	ok(c, gin.H{})
}

// AdConfig reports rewarded-ad client configuration. The ad unit id is an
// opaque passthrough for the client UI.
func AdConfig(c *gin.Context) {
	ok(c, gin.H{
		"enabled":    config.Settings.AdUnitID != "",
		"ad_unit_id": config.Settings.AdUnitID,
		"demo_mode":  config.Settings.AdDemoMode,
	})
}

// GetQuota returns the quota status for a (device, app) pair
func GetQuota(c *gin.Context) {
	appKey := strings.TrimSpace(c.Param("app_key"))
	deviceID := strings.TrimSpace(c.Param("device_id"))
	if appKey == "" || deviceID == "" {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "app_key and device_id are required")
		return
	}

	status, err := service.GlobalServices.Quota.Status(deviceID, appKey)
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to read quota")
		return
	}
	ok(c, status)
}

// IssueTicket mints a signed single-use ad ticket
func IssueTicket(c *gin.Context) {
	var req models.DeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request")
		return
	}
	req.Normalize()
	if req.DeviceID == "" {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "device_id is required")
		return
	}

	grant, err := service.GlobalServices.Ticket.Issue(req.DeviceID, req.AppKey)
	if err != nil {
		if errors.Is(err, service.ErrSecretUnconfigured) {
			fail(c, http.StatusServiceUnavailable, CodeFeatureDisabled, "Ad unlock is unavailable")
			return
		}
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to issue ticket")
		return
	}
	ok(c, grant)
}

// RedeemTicket verifies a presented ticket and converts it into one ad credit
func RedeemTicket(c *gin.Context) {
	var req models.AdVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request")
		return
	}
	req.Normalize()
	if req.DeviceID == "" {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "device_id is required")
		return
	}

	status, err := service.GlobalServices.Ticket.VerifyAndRedeem(req.DeviceID, req.AppKey, req.TicketID, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTicketUsed):
			fail(c, http.StatusConflict, CodeTicketUsed, "Ticket already claimed")
		case errors.Is(err, service.ErrTicketInvalid):
			fail(c, http.StatusBadRequest, CodeTicketInvalid, "Ticket verification failed")
		default:
			fail(c, http.StatusInternalServerError, CodeInternal, "Failed to redeem ticket")
		}
		return
	}
	ok(c, gin.H{"quota": status})
}

// Consume spends one unit of quota for a (device, app) pair. Refusal is a
// normal outcome reported through the granted flag.
func Consume(c *gin.Context) {
	var req models.DeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request")
		return
	}
	req.Normalize()
	if req.DeviceID == "" {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "device_id is required")
		return
	}

	granted, status, err := service.GlobalServices.Quota.AttemptUse(req.DeviceID, req.AppKey)
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to consume quota")
		return
	}
	ok(c, gin.H{"granted": granted, "quota": status})
}

// GetAdEvents returns recent ticket audit events
func GetAdEvents(c *gin.Context) {
	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := service.GlobalServices.Event.Recent(limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to list ad events")
		return
	}
	ok(c, gin.H{"items": events})
}

// GetErrorLogs returns recent service fault records
func GetErrorLogs(c *gin.Context) {
	limit := 100
	if limitStr := c.Query("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	logs, err := service.GlobalServices.Event.RecentErrors(limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to list error logs")
		return
	}
	ok(c, gin.H{"items": logs})
}

// ClearErrorLogs removes all service fault records
func ClearErrorLogs(c *gin.Context) {
	if err := service.GlobalServices.Event.ClearErrors(); err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to clear error logs")
		return
	}
	ok(c, gin.H{})
}

// GetStats returns site counters
func GetStats(c *gin.Context) {
	views, err := database.GetMetric(database.MetricPageViews)
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to read stats")
		return
	}
	ok(c, gin.H{"page_views": views})
}

// CountPageView bumps the landing page counter
func CountPageView(c *gin.Context) {
	views, err := database.IncrementMetric(database.MetricPageViews)
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to count page view")
		return
	}
	ok(c, gin.H{"page_views": views})
}

// HealthCheck reports service liveness and feature readiness
func HealthCheck(c *gin.Context) {
	dbHealthy := database.SQLiteUp(c.Request.Context())

	health := gin.H{
		"status":            "healthy",
		"timestamp":         time.Now().Unix(),
		"db_healthy":        dbHealthy,
		"secret_configured": config.Settings.AdUnlockSecret != "",
		"sqlite_busy":       database.SQLiteBusyErrorsTotal(),
		"sqlite_locked":     database.SQLiteLockedErrorsTotal(),
	}

	if !dbHealthy {
		health["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}
	c.JSON(http.StatusOK, health)
}

// GetVersion reports build metadata
func GetVersion(c *gin.Context) {
	ok(c, gin.H{
		"version": version.GetFullVersion(),
		"commit":  version.CommitHash,
		"built":   version.BuildTime,
	})
}
