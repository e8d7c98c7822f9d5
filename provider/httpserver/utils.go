package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// IsJSONRequest returns true if request is a JSON request.
func IsJSONRequest(ctx *gin.Context) bool {
	return ctx.Request.Header.Get(HeaderAccept) == ContentTypeJson ||
		ctx.Request.Header.Get(HeaderContentType) == ContentTypeJson
}

// HttpError401 sends a 401 Unauthorized response with logging.
func HttpError401(ctx *gin.Context) {
	RequestLogger(ctx).Warn("unauthorized access attempt", map[string]interface{}{"status": http.StatusUnauthorized})
	ctx.AbortWithStatusJSON(http.StatusUnauthorized, JSONResponseError{
		Success: false,
		Error:   JSONErrorDetail{Message: http.StatusText(http.StatusUnauthorized)},
	})
}

// HttpError403 sends a 403 Forbidden response with logging.
func HttpError403(ctx *gin.Context) {
	HttpError403Msg(ctx, http.StatusText(http.StatusForbidden))
}

// HttpError403Msg sends a 403 Forbidden response with a caller-supplied body
// message, for callers whose error carries a more specific reason than the
// generic status text.
func HttpError403Msg(ctx *gin.Context, message string) {
	if message == "" {
		message = http.StatusText(http.StatusForbidden)
	}
	RequestLogger(ctx).Warn("forbidden access attempt", map[string]interface{}{"status": http.StatusForbidden, "message": message})
	ctx.AbortWithStatusJSON(http.StatusForbidden, JSONResponseError{
		Success: false,
		Error:   JSONErrorDetail{Message: message},
	})
}

// HttpError404 sends a 404 Not Found response with logging.
func HttpError404(ctx *gin.Context) {
	RequestLogger(ctx).Info("resource not found", map[string]interface{}{"status": http.StatusNotFound})
	ctx.AbortWithStatusJSON(http.StatusNotFound, JSONResponseError{
		Success: false,
		Error:   JSONErrorDetail{Message: http.StatusText(http.StatusNotFound)},
	})
}

// HttpError400 sends a 400 Bad Request response with logging.
func HttpError400(ctx *gin.Context, message string) {
	if message == "" {
		message = http.StatusText(http.StatusBadRequest)
	}
	RequestLogger(ctx).Warn("bad request", map[string]interface{}{"status": http.StatusBadRequest, "message": message})
	ctx.AbortWithStatusJSON(http.StatusBadRequest, JSONResponseError{
		Success: false,
		Error:   JSONErrorDetail{Message: message},
	})
}

// HttpError429 sends a 429 Too Many Requests response with logging.
func HttpError429(ctx *gin.Context, message string) {
	if message == "" {
		message = http.StatusText(http.StatusTooManyRequests)
	}
	RequestLogger(ctx).Warn("rate limited", map[string]interface{}{"status": http.StatusTooManyRequests, "message": message})
	ctx.AbortWithStatusJSON(http.StatusTooManyRequests, JSONResponseError{
		Success: false,
		Error:   JSONErrorDetail{Message: message},
	})
}

// HttpError500 sends a 500 Internal Server Error response with logging.
// Internal error detail is never exposed to the client.
func HttpError500(ctx *gin.Context, err error) {
	RequestLogger(ctx).Error(err, "internal server error", map[string]interface{}{"status": http.StatusInternalServerError})
	ctx.AbortWithStatusJSON(http.StatusInternalServerError, JSONResponseError{
		Success: false,
		Error:   JSONErrorDetail{Message: http.StatusText(http.StatusInternalServerError)},
	})
}

// HttpSuccess sends a 200 OK response with the given payload.
func HttpSuccess(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, JSONResponseSuccess{
		Success: true,
		Data:    data,
	})
}
