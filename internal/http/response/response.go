package response

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/briefs-backend/internal/pkg/apierr"
	"github.com/yungbote/briefs-backend/internal/versioning"
)

// ContentionRetryAfter is advertised to clients that hit a busy family.
const ContentionRetryAfter = time.Second

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondErr maps err onto a status and code. Server errors hide the underlying message.
func RespondErr(c *gin.Context, err error) {
	ae := Classify(err)
	if secs := ae.RetryAfterSeconds(); secs > 0 {
		c.Header("Retry-After", strconv.Itoa(secs))
	}
	if ae.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(ae.Status, ErrorEnvelope{Error: APIError{Message: ae.Public(), Code: ae.Code}})
}

func Classify(err error) *apierr.Error {
	var ae *apierr.Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae
	}
	switch {
	case errors.Is(err, versioning.ErrInvalidInput):
		return apierr.New(http.StatusBadRequest, "invalid_input", err)
	case errors.Is(err, versioning.ErrNotFound):
		return apierr.New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, versioning.ErrInvalidState):
		return apierr.New(http.StatusConflict, "invalid_state", err)
	case errors.Is(err, versioning.ErrContention):
		return apierr.Unavailable("contention", err, ContentionRetryAfter)
	case errors.Is(err, versioning.ErrStorageFailure):
		return apierr.New(http.StatusInternalServerError, "storage_failure", err)
	default:
		return apierr.New(http.StatusInternalServerError, "internal", err)
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
