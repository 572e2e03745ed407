package service

import "errors"

// ErrActivityNotFound indicates the referenced activity does not exist.
var ErrActivityNotFound = errors.New("activity not found")

// ErrApprovalNotFound indicates the referenced approval record does not exist.
var ErrApprovalNotFound = errors.New("approval record not found")

// ErrFacultyNotFound indicates the referenced faculty member does not exist.
var ErrFacultyNotFound = errors.New("faculty member not found")

// ErrNotOwner indicates the caller is not the student owning the activity.
var ErrNotOwner = errors.New("caller is not the owning student")

// ErrNotAssignedFaculty indicates the caller is not the reviewer assigned to
// the approval record.
var ErrNotAssignedFaculty = errors.New("caller is not the assigned faculty")

// ErrActivityLocked indicates the activity is approved and read-mostly:
// updates and deletes are no longer permitted.
var ErrActivityLocked = errors.New("approved activities cannot be modified")

// ErrInvalidState indicates the operation is not legal from the record's
// current status. Wrapped with the offending status for detail.
var ErrInvalidState = errors.New("operation not allowed in current state")

// ErrEmptyReason indicates a rejection was attempted without a reason.
var ErrEmptyReason = errors.New("rejection reason must not be empty")

// ErrEmptyChanges indicates a change request without the requested changes.
var ErrEmptyChanges = errors.New("requested changes must not be empty")

// ErrEndBeforeStart indicates an activity time range with end before start.
var ErrEndBeforeStart = errors.New("end date must not precede start date")
