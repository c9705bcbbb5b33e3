package service

import (
	"payment-reconciler/internal/core/domain"
	"payment-reconciler/internal/core/ports"
	"payment-reconciler/internal/core/reference"
	"payment-reconciler/pkg/apperror"
)

// Dispatcher picks the processing branch of a webhook delivery.
type Dispatcher struct {
	notifyMarker string
}

func NewDispatcher(notifyMarker string) *Dispatcher {
	if notifyMarker == "" {
		notifyMarker = reference.MarkerNotify
	}
	return &Dispatcher{notifyMarker: notifyMarker}
}

// RequiresNotification reports whether any of the stored references asks for
// the downstream push.
func (d *Dispatcher) RequiresNotification(references ...string) bool {
	for _, ref := range references {
		if reference.HasMarker(ref, d.notifyMarker) {
			return true
		}
	}
	return false
}

// Classify returns the branch for status. A flagged reference wins over the
// status; unknown statuses are rejected.
func (d *Dispatcher) Classify(status domain.TransactionStatus, references ...string) (ports.WebhookBranch, error) {
	if d.RequiresNotification(references...) {
		return ports.BranchNotification, nil
	}
	switch status {
	case domain.TransactionStatusApproved:
		return ports.BranchApproved, nil
	case domain.TransactionStatusDeclined:
		return ports.BranchDeclined, nil
	case domain.TransactionStatusError:
		return ports.BranchError, nil
	default:
		return "", apperror.ErrUnhandledStatus(string(status))
	}
}
