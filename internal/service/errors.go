package service

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/iliyamo/gymdesk/internal/model"
	"github.com/iliyamo/gymdesk/internal/repository"
)

// Sentinel errors returned by the workflows.  Handlers map them onto
// HTTP statuses; callers compare with errors.Is.
var (
	// ErrNotFound is the repository sentinel re-exported for callers that
	// only import service.
	ErrNotFound = repository.ErrNotFound

	ErrPlanNotFound       = errors.New("membership plan not found")
	ErrPlanRetired        = errors.New("membership plan is no longer offered")
	ErrReasonRequired     = errors.New("a reason is required for this status")
	ErrAlreadyConverted   = errors.New("already converted")
	ErrDurationImmutable  = errors.New("plan duration cannot be changed")
	ErrInvalidRange       = errors.New("end date is before start date")
	ErrNothingToUpdate    = errors.New("nothing to update")
	ErrProvisioningClosed = errors.New("staff provisioning is disabled")
)

// PlanNotFoundError names the plan reference that did not resolve.
type PlanNotFoundError struct {
	Ref model.PlanRef
}

func (e *PlanNotFoundError) Error() string {
	return fmt.Sprintf("membership plan %s not found", e.Ref)
}

// Is makes errors.Is(err, ErrPlanNotFound) hold.
func (e *PlanNotFoundError) Is(target error) bool { return target == ErrPlanNotFound }
