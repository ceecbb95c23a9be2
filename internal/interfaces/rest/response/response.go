// Package response writes the JSON envelope shared by every REST endpoint.
package response

import (
	"github.com/gin-gonic/gin"
)

type Envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Meta    any  `json:"meta,omitempty"`
}

// OK writes a successful envelope. meta may be nil.
func OK(c *gin.Context, status int, data, meta any) {
	c.JSON(status, Envelope{Success: true, Data: data, Meta: meta})
}

// Fail writes {success:false, error} plus any extra fields and aborts the
// handler chain.
func Fail(c *gin.Context, status int, message string, extra gin.H) {
	body := gin.H{
		"success": false,
		"error":   message,
	}
	for k, v := range extra {
		body[k] = v
	}
	c.AbortWithStatusJSON(status, body)
}
