package detection

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrOrchestrationFault = errors.New("orchestration fault")
	ErrPersistence        = errors.New("persistence error")
)

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// FaultError is a systemic check failure. CheckID is zero when the check
// could not be created at all.
type FaultError struct {
	CheckID uuid.UUID
	Reason  string
	Err     error
}

func (e *FaultError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrOrchestrationFault, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrOrchestrationFault, e.Reason)
}

func (e *FaultError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrOrchestrationFault, e.Err}
	}
	return []error{ErrOrchestrationFault}
}
