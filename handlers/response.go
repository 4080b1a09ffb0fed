package handlers

import (
	"github.com/gin-gonic/gin"
	"net/http"
)

// Response is the stable API envelope.
type Response struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

const (
	CodeOK              = "OK"
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeFeatureDisabled = "FEATURE_DISABLED"
	CodeTicketInvalid   = "TICKET_INVALID"
	CodeTicketUsed      = "TICKET_USED"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeInternal        = "INTERNAL_ERROR"
)

func respond(c *gin.Context, status int, code, message string, data any) {
	c.JSON(status, Response{Code: code, Message: message, Data: data})
}

func ok(c *gin.Context, data any) {
	respond(c, http.StatusOK, CodeOK, "OK", data)
}

func fail(c *gin.Context, status int, code, message string) {
	respond(c, status, code, message, gin.H{})
}
