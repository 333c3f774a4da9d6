package status

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
)

// Status structure with code and message presentable to the user
type Status struct {
	Code           int             `json:"code" example:"502"`
	Message        string          `json:"message" example:"conversion failed"`
	InternalStatus ConverterStatus `json:"-"`
}

// ConverterStatus is the error body as received from the conversion service.
// The service answers failures with {"error": "<reason>"}; some proxies in
// front of it answer with {"detail": "<reason>"} instead.
type ConverterStatus struct {
	Error  string `json:"error" example:"Model is not loaded."`
	Detail string `json:"detail,omitempty"`
}

// NewStatus creates a new object by the given information
func NewStatus(body []byte, code int, message string) *Status {
	status := &Status{
		Code:    code,
		Message: message,
	}
	if body != nil {
		status.InternalStatus = parseConverterStatus(body)
	}
	return status
}

// NewHTTPStatus encapsulates a proper http error response
func NewHTTPStatus(ctx *gin.Context, status int, err error) {
	er := Status{
		Code:    status,
		Message: err.Error(),
	}
	ctx.JSON(status, er)
}

// Send sends the status back as a JSON response
func (s *Status) Send(ctx *gin.Context) {
	ctx.JSON(s.Code, s)
}

// Reason returns the most specific message available: the one reported by
// the conversion service if there was one, else the status message.
func (s *Status) Reason() string {
	if s.InternalStatus.Error != "" {
		return s.InternalStatus.Error
	}
	if s.InternalStatus.Detail != "" {
		return s.InternalStatus.Detail
	}
	return s.Error()
}

// Implements the error interface
func (s Status) Error() string {
	if s.Message != "" {
		return s.Message
	}
	return http.StatusText(s.Code)
}

func parseConverterStatus(body []byte) ConverterStatus {
	if !gjson.ValidBytes(body) {
		return ConverterStatus{}
	}
	res := gjson.ParseBytes(body)
	return ConverterStatus{
		Error:  res.Get("error").String(),
		Detail: res.Get("detail").String(),
	}
}
