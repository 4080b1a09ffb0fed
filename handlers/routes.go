package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches all API routes to the router
func RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		// Quiz app catalog and quota
		api.GET("/quiz/apps", ListApps)
		api.GET("/quiz/ad-config", AdConfig)
		api.GET("/quiz/quota/:app_key/:device_id", GetQuota)
		api.POST("/quiz/ad-ticket", IssueTicket)
		api.POST("/quiz/unlock-ad-verify", RedeemTicket)
		api.POST("/quiz/consume", Consume)

		// Site counters
		api.GET("/stats", GetStats)
		api.POST("/stats/page-view", CountPageView)

		// Health and build info
		api.GET("/health", HealthCheck)
		api.GET("/version", GetVersion)

		// Admin surface
		admin := api.Group("", AdminAuth())
		{
			admin.POST("/quiz/apps/setting", PatchAppSetting)
			admin.GET("/ad-events", GetAdEvents)
			admin.GET("/error-logs", GetErrorLogs)
			admin.DELETE("/error-logs", ClearErrorLogs)
		}
	}
}
