package remote

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/akozlovs/vinotes/internal/common"
)

// Outcome is the sync engine's view of one remote call.
type Outcome int

const (
	// OutcomeSuccess removes the queue entry.
	OutcomeSuccess Outcome = iota
	// OutcomeConflict leaves the entry queued and opens a conflict on the
	// record; only user resolution clears it.
	OutcomeConflict
	// OutcomeRetryable bumps the entry's retry counter, dropping it once
	// the cap is exhausted.
	OutcomeRetryable
	// OutcomePermanent dead-letters the entry immediately: the payload can
	// never apply, so retrying is pointless.
	OutcomePermanent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeConflict:
		return "conflict"
	case OutcomeRetryable:
		return "retryable"
	case OutcomePermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Classify maps a remote call error to the engine's outcome taxonomy.
// Anything unrecognized counts as retryable: network flaps, 5xx, timeouts.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, common.ErrVersionConflict):
		return OutcomeConflict
	case errors.Is(err, common.ErrorValidation):
		return OutcomePermanent
	default:
		return OutcomeRetryable
	}
}

// statusError converts an HTTP status into the sentinel taxonomy:
//
//	409, 412      -> ErrVersionConflict (conflict, user-mediated)
//	400, 422      -> ErrorValidation    (permanent)
//	404           -> ErrorNotFound      (retryable for writes; FetchRecord
//	                 surfaces it as the "absent" answer)
//	anything else -> plain error        (retryable)
func statusError(status int, detail string) error {
	switch status {
	case http.StatusConflict, http.StatusPreconditionFailed:
		return fmt.Errorf("%w: %s", common.ErrVersionConflict, detail)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", common.ErrorValidation, detail)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", common.ErrorNotFound, detail)
	default:
		return fmt.Errorf("remote returned %d: %s", status, detail)
	}
}
