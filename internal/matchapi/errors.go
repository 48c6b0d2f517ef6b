package matchapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jdh4601/ClosetBot/internal/utils"
)

// ErrNotReady means the results resource does not exist yet. It is not a
// failure; the job has simply not completed.
var ErrNotReady = errors.New("analysis results are not ready yet")

const maxDetailLength = 200

// StatusError is returned for any non-2xx response that is not otherwise
// classified.
type StatusError struct {
	Code   int
	Status string
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("bad status: %s: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("bad status: %s", e.Status)
}

// IsNotFound reports whether err carries a 404 response.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == 404
}

// ResponseError is returned when a response body does not match the
// documented contract.
type ResponseError struct {
	Errors []FieldError
}

type FieldError struct {
	Field   string
	Message string
}

func (e *ResponseError) Error() string {
	var sb strings.Builder
	sb.WriteString("unexpected response payload:")
	for i, fe := range e.Errors {
		sb.WriteString(fmt.Sprintf(" %d. %s: %s;", i+1, fe.Field, fe.Message))
	}
	return strings.TrimSuffix(sb.String(), ";")
}

// errorDetail extracts a human readable message from an error body. The API
// answers with {"detail": "..."}; anything else is returned truncated.
func errorDetail(body []byte) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != nil {
		if s, ok := payload.Detail.(string); ok {
			return utils.TruncateForLog(s, maxDetailLength)
		}
		if raw, err := json.Marshal(payload.Detail); err == nil {
			return utils.TruncateForLog(string(raw), maxDetailLength)
		}
	}
	return utils.TruncateForLog(string(body), maxDetailLength)
}
