package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/krti/uavcore/log2"
)

// StatusError carries an HTTP-style status code from a transport.
type StatusError struct{ Code int }

func (e *StatusError) Error() string { return fmt.Sprintf("status %d", e.Code) }

type Action uint8

const (
	// ActionRetry: transient (404, 5xx, network) - recover with backoff.
	ActionRetry Action = iota
	// ActionReconfig: auth/config problem - reconnecting with the same
	// config cannot help, require config re-validation.
	ActionReconfig
)

// Classify maps a transport error to its status code and recovery
// action. Unknown errors are transient with code 0.
func Classify(err error) (int, Action) {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case 401, 403:
			return se.Code, ActionReconfig
		default:
			return se.Code, ActionRetry
		}
	}
	return 0, ActionRetry
}

// DiagSink receives a structured record for every classified network
// error. External collaborator; LogDiag is the default.
type DiagSink interface {
	ReportError(code int, at time.Time, context string)
}

type LogDiag struct{ Log *log2.Log }

func (d LogDiag) ReportError(code int, at time.Time, context string) {
	d.Log.Errorf("net code=%d at=%s context=%s", code, at.Format(time.RFC3339), context)
}
