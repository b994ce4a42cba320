package httputil

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/urovital/clinic-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code      int          `json:"code"`
	Message   string       `json:"message"`
	Fields    []FieldError `json:"fields,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
}

type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

const contextRequestID = "request_id"

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError sends an error response. The error is attached to the
// gin context so the request logger records the cause; clients only ever
// see the AppError message.
func RespondWithError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := errors.HTTPStatus(err)
	message := http.StatusText(status)

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && status != http.StatusInternalServerError {
		message = appErr.Message
	}

	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error: &Error{
			Code:      status,
			Message:   message,
			RequestID: c.GetString(contextRequestID),
		},
	})
}

// RespondWithBindingError renders request binding failures as 400 with the
// offending fields named.
func RespondWithBindingError(c *gin.Context, err error) {
	_ = c.Error(err)

	var fields []FieldError
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, Response{
		Success: false,
		Error: &Error{
			Code:      http.StatusBadRequest,
			Message:   "invalid request",
			Fields:    fields,
			RequestID: c.GetString(contextRequestID),
		},
	})
}
