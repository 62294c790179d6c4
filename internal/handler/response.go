package handler

import (
	"github.com/labstack/echo/v4"
)

// SuccessBody is the envelope of every successful response.
type SuccessBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ErrorBody is the envelope of every failed response.  Errors carries
// per-field validation messages and is omitted otherwise.
type ErrorBody struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Code    string   `json:"code"`
	Errors  []string `json:"errors,omitempty"`
}

// success writes data in the success envelope.
func success(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, SuccessBody{Success: true, Message: message, Data: data})
}

// failure writes the error envelope.  Details are dropped for 5xx and
// auth responses so internals never leak.
func failure(c echo.Context, status int, code, message string, details []string) error {
	if status >= 500 || status == 401 || status == 403 {
		details = nil
	}
	return c.JSON(status, ErrorBody{Message: message, Code: code, Errors: details})
}
