package usecase

import (
	"errors"
	"fmt"
)

// RejectReason is the machine-readable code attached to every refused
// booking transition.
type RejectReason string

const (
	ReasonNoIdentity     RejectReason = "no_identity"
	ReasonNoSlotSelected RejectReason = "no_slot_selected"
	ReasonSlotElapsed    RejectReason = "slot_elapsed"
	ReasonSelfConflict   RejectReason = "self_conflict"
	ReasonOtherConflict  RejectReason = "other_conflict"
	ReasonSlotTaken      RejectReason = "slot_taken"
	ReasonNotFound       RejectReason = "not_found"
	ReasonStoreFailure   RejectReason = "store_failure"
)

// Rejection is a terminal refusal of a booking request. Every refusal
// carries both the reason code and a human-readable message; no code path
// fails silently.
type Rejection struct {
	Reason  RejectReason
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Reason, r.Message)
}

func reject(reason RejectReason, message string) *Rejection {
	return &Rejection{Reason: reason, Message: message}
}

// AsRejection unwraps err into a Rejection, if it is one.
func AsRejection(err error) (*Rejection, bool) {
	var rejection *Rejection
	if errors.As(err, &rejection) {
		return rejection, true
	}
	return nil, false
}
