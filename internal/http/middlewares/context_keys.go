package middlewares

// gin.Context keys shared by middlewares and handlers.
const (
	CtxRequestID = "request_id"
	ctxUserIDKey = "auth.userID"
)
