package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janhq/image-upload/internal/domain/tagging"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HandleError maps domain errors to HTTP status codes. Unclassified errors become 500
// with a generic message; details stay in the logs.
func HandleError(c *gin.Context, err error, message string) {
	status := http.StatusInternalServerError
	detail := message
	switch {
	case errors.Is(err, tagging.ErrInvalidFilename):
		status = http.StatusBadRequest
		detail = err.Error()
	case errors.Is(err, tagging.ErrUnsupportedMedia):
		status = http.StatusUnsupportedMediaType
		detail = err.Error()
	case errors.Is(err, tagging.ErrNotFound):
		status = http.StatusNotFound
		detail = "object not found"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: http.StatusText(status), Message: detail})
}

// BadRequest aborts with 400.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: http.StatusText(http.StatusBadRequest), Message: message})
}
