package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/visitor-parking-backend/internal/pkg/apperror"
)

// ErrorResponse defines the JSON structure for error responses.
type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Error sends a JSON error response.
// It checks if the error is an AppError to determine the status code.
// If it's not an AppError, it defaults to 500 Internal Server Error.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.Kind == apperror.KindInternal || appErr.Kind == apperror.KindGatewayFailure {
			_ = c.Error(err)
		}
		c.JSON(appErr.Code, ErrorResponse{
			Error:  appErr.Message,
			Kind:   string(appErr.Kind),
			Reason: appErr.Reason,
		})
		return
	}

	// Attach to the gin context so the access log middleware records the cause.
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Kind: string(apperror.KindInternal)})
}
