package httpmw

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/robinstudios/dot/internal/common/errors"
	"github.com/robinstudios/dot/internal/common/logger"
)

// ErrorBody is the JSON body of every failed request.
type ErrorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
	JobID     string `json:"job_id,omitempty"`
}

// RespondError writes err with the status of its AppError code. Errors that
// are not AppErrors are logged and reported as internal errors.
func RespondError(c *gin.Context, log *logger.Logger, err error) {
	c.JSON(apperrors.GetHTTPStatus(err), BodyFor(c, log, err))
}

// BodyFor returns the error body for err.
func BodyFor(c *gin.Context, log *logger.Logger, err error) ErrorBody {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("path", c.FullPath()),
				zap.String("code", appErr.Code),
				zap.Error(err))
		}
		return ErrorBody{Error: appErr.Message, Code: appErr.Code, Retryable: appErr.Retryable}
	}
	log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	return ErrorBody{Error: "request failed", Code: apperrors.ErrCodeInternalError}
}

// BindError writes a 400 for a request body that could not be decoded.
func BindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorBody{
		Error: "invalid request body: " + err.Error(),
		Code:  apperrors.ErrCodeBadRequest,
	})
}
