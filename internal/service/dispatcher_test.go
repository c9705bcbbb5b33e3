package service

import (
	"testing"

	"payment-reconciler/internal/core/domain"
	"payment-reconciler/internal/core/ports"
	"payment-reconciler/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_Classify(t *testing.T) {
	d := NewDispatcher("")

	tests := []struct {
		name    string
		status  domain.TransactionStatus
		refs    []string
		want    ports.WebhookBranch
		wantErr string
	}{
		{"approved", domain.TransactionStatusApproved, []string{testReference}, ports.BranchApproved, ""},
		{"declined", domain.TransactionStatusDeclined, []string{testReference}, ports.BranchDeclined, ""},
		{"error", domain.TransactionStatusError, nil, ports.BranchError, ""},
		{"pending is unhandled", domain.TransactionStatusPending, []string{testReference}, "", apperror.CodeUnhandledStatus},
		{"voided is unhandled", domain.TransactionStatusVoided, nil, "", apperror.CodeUnhandledStatus},
		{"marker wins over status", domain.TransactionStatusPending, []string{"FAC1", "FAC1_CMPY_01_APP_EVA_"}, ports.BranchNotification, ""},
		{"marker is case-insensitive", domain.TransactionStatusApproved, []string{"fac1_app_eva_"}, ports.BranchNotification, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Classify(tt.status, tt.refs...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assertAppErrorCode(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDispatcher_CustomMarker(t *testing.T) {
	d := NewDispatcher("_NOTIFY_")

	assert.True(t, d.RequiresNotification("FAC1_NOTIFY_"))
	assert.False(t, d.RequiresNotification("FAC1_APP_EVA_"))
	assert.False(t, d.RequiresNotification())
}
