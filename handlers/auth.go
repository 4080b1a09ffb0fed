package handlers

import (
	"adgate/config"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuth guards administrative endpoints with a bcrypt-checked token from
// the X-Admin-Token header. An empty configured hash disables the admin API
// entirely rather than leaving it open.
func AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		hash := config.Settings.AdminTokenHash
		if hash == "" {
			fail(c, http.StatusServiceUnavailable, CodeFeatureDisabled, "Admin API is not configured")
			c.Abort()
			return
		}

		token := c.GetHeader("X-Admin-Token")
		if token == "" {
			fail(c, http.StatusUnauthorized, CodeUnauthorized, "Missing admin token")
			c.Abort()
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
			fail(c, http.StatusUnauthorized, CodeUnauthorized, "Invalid admin token")
			c.Abort()
			return
		}

		c.Next()
	}
}
