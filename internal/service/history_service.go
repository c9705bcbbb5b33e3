package service

import (
	"context"
	"strings"

	"payment-reconciler/internal/core/ports"
	"payment-reconciler/pkg/apperror"
)

// historyService implements ports.HistoryService.
type historyService struct {
	historyRepo ports.HistoryRepository
	ledgerRepo  ports.LedgerRepository
}

func NewHistoryService(historyRepo ports.HistoryRepository, ledgerRepo ports.LedgerRepository) ports.HistoryService {
	return &historyService{
		historyRepo: historyRepo,
		ledgerRepo:  ledgerRepo,
	}
}

// GetTransactionHistory returns both row sets of a transaction. A transaction
// with neither is reported as not found.
func (s *historyService) GetTransactionHistory(ctx context.Context, transactionID string) (*ports.TransactionHistory, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, apperror.Validation("transactionId is required")
	}

	history, err := s.historyRepo.ListByTransaction(ctx, transactionID)
	if err != nil {
		return nil, apperror.ErrPersistence(err)
	}
	ledger, err := s.ledgerRepo.ListByTransaction(ctx, transactionID)
	if err != nil {
		return nil, apperror.ErrPersistence(err)
	}
	if len(history) == 0 && len(ledger) == 0 {
		return nil, apperror.ErrNotFound("Transaction")
	}

	return &ports.TransactionHistory{
		TransactionID: transactionID,
		History:       history,
		Ledger:        ledger,
	}, nil
}
