package llm

import (
	"fmt"
	"net/http"
)

// StatusError is a non-200 reply from a provider API.
type StatusError struct {
	Provider string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	return fmt.Sprintf("%s api: %d %s", e.Provider, e.Code, msg)
}

// HTTPStatus lets the retry layer classify the failure.
func (e *StatusError) HTTPStatus() int { return e.Code }
