package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	msgInternal     = "Internal server error"
	msgUnauthorized = "Unauthorized"
)

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

// RespondErrors writes {"errors": [...]}, the shape used by signup and login.
func RespondErrors(ctx *gin.Context, status int, messages ...string) {
	if messages == nil {
		messages = []string{}
	}
	ctx.JSON(status, gin.H{"errors": messages})
}

// RespondError writes {"error": "..."}, the shape used by identity lookups.
func RespondError(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"error": message})
}

func RespondBadRequest(ctx *gin.Context, messages ...string) {
	RespondErrors(ctx, http.StatusBadRequest, messages...)
}

func RespondConflict(ctx *gin.Context, message string) {
	RespondErrors(ctx, http.StatusConflict, message)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondErrors(ctx, http.StatusUnauthorized, message)
}

// RespondInternal never carries the underlying error; callers log it.
func RespondInternal(ctx *gin.Context) {
	RespondErrors(ctx, http.StatusInternalServerError, msgInternal)
}
