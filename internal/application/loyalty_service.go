package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/Lokeshwarrior12/FineDine/internal/domain/loyalty"
)

const recentTransactions = 20

// LoyaltyService reports users' point balances.
type LoyaltyService struct {
	repo loyalty.Repository
}

// NewLoyaltyService creates a new LoyaltyService.
func NewLoyaltyService(repo loyalty.Repository) *LoyaltyService {
	return &LoyaltyService{repo: repo}
}

// GetBalance returns the user's balance and latest ledger entries.
func (s *LoyaltyService) GetBalance(ctx context.Context, userID uuid.UUID) (*LoyaltyDTO, error) {
	account, err := s.repo.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := s.repo.ListTransactions(ctx, userID, recentTransactions)
	if err != nil {
		return nil, err
	}
	dto := toLoyaltyDTO(account, txs)
	return &dto, nil
}
