package response

import (
	"net/http"

	appErrors "github.com/charlesng35/promptgallery/pkg/errors"
	"github.com/gin-gonic/gin"
)

// ContentTypePNG is the media type of generated images.
const ContentTypePNG = "image/png"

// ErrorBody is the flat error payload returned to clients.
// Diagnostic details are merged next to the "error" key.
type ErrorBody map[string]any

// JSON writes payload as-is. Clients of the gallery expect bare arrays, not envelopes.
func JSON(c *gin.Context, statusCode int, payload any) {
	c.JSON(statusCode, payload)
}

// Binary writes raw bytes with the given content type.
func Binary(c *gin.Context, statusCode int, contentType string, body []byte) {
	c.Data(statusCode, contentType, body)
}

// Error writes a JSON error response derived from an AppError.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.AbortWithStatusJSON(status, Body(appErr))
}

// Body renders the client-facing payload for an AppError.
func Body(appErr *appErrors.AppError) ErrorBody {
	body := make(ErrorBody, len(appErr.Details)+1)
	for k, v := range appErr.Details {
		body[k] = v
	}
	body["error"] = appErr.Message
	return body
}
