package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/nidahp/portal-api/internal/handler"
	apperrors "github.com/nidahp/portal-api/pkg/errors"
)

// ErrorHandler renders the last error a handler attached with c.Error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		traceID := c.GetString(ContextRequestID)
		err := c.Errors.Last().Err
		status, resp := render(err)
		resp.TraceID = traceID

		event := log.Debug()
		switch {
		case status >= 500:
			event = log.Error()
		case apperrors.Is(err, apperrors.ErrState), apperrors.Is(err, apperrors.ErrDuplicate):
			event = log.Warn()
		}
		event.
			Err(err).
			Str("trace_id", traceID).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Int("status", status).
			Msg("Request error")

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(status, resp)
	}
}

func render(err error) (int, *handler.Response) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp := handler.NewErrorResponse("validation failed")
		resp.Code = http.StatusBadRequest
		resp.Errors = validationErrors(verrs)
		return http.StatusBadRequest, resp
	}

	if appErr, ok := apperrors.As(err); ok {
		status := appErr.HTTPStatus()
		msg := appErr.Message
		if status >= 500 {
			msg = "internal server error"
		}
		resp := handler.NewErrorResponse(msg)
		resp.Code = status
		return status, resp
	}

	if errors.Is(err, context.DeadlineExceeded) {
		resp := handler.NewErrorResponse("request timeout")
		resp.Code = http.StatusGatewayTimeout
		return http.StatusGatewayTimeout, resp
	}

	resp := handler.NewErrorResponse("internal server error")
	resp.Code = http.StatusInternalServerError
	return http.StatusInternalServerError, resp
}
