package saga

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Lokeshwarrior12/FineDine/internal/idempotency"
)

// IssueFunc issues one coupon and returns its ID.
type IssueFunc func(ctx context.Context) (uuid.UUID, error)

// ClaimSagaService makes coupon issuance replayable by idempotency key.
type ClaimSagaService struct {
	store  idempotency.Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewClaimSagaService creates a new ClaimSagaService.
func NewClaimSagaService(store idempotency.Store, ttl time.Duration, logger *zap.Logger) *ClaimSagaService {
	return &ClaimSagaService{store: store, ttl: ttl, logger: logger}
}

// ClaimKey scopes a client supplied key to one user and offer.
func ClaimKey(userID, offerID uuid.UUID, clientKey string) string {
	return "claim:" + userID.String() + ":" + offerID.String() + ":" + clientKey
}

// Run returns the coupon ID remembered under key, or runs issue while
// holding the key and remembers its result. replayed is true when the ID
// comes from an earlier request.
func (s *ClaimSagaService) Run(ctx context.Context, key string, issue IssueFunc) (couponID uuid.UUID, replayed bool, err error) {
	prev, found, err := s.store.Lookup(ctx, key)
	if err != nil {
		return uuid.Nil, false, err
	}
	if found {
		id, err := uuid.Parse(prev)
		if err == nil {
			return id, true, nil
		}
		s.logger.Warn("discarding unreadable idempotency entry", zap.String("key", key), zap.Error(err))
	}

	sg := New("claim_coupon", s.logger)

	// Step 1: hold the key so a concurrent retry is turned away.
	sg.AddStep(Step{
		Name: "acquire_idempotency_key",
		Execute: func(ctx context.Context) error {
			return s.store.Acquire(ctx, key, s.ttl)
		},
		Compensate: func(ctx context.Context) error {
			return s.store.Release(ctx, key)
		},
	})

	// Step 2: issue the coupon in a single database transaction. It either
	// commits fully or leaves nothing behind, so it needs no compensation.
	sg.AddStep(Step{
		Name: "issue_coupon",
		Execute: func(ctx context.Context) error {
			id, err := issue(ctx)
			couponID = id
			return err
		},
	})

	// Step 3: remember the result for replays. The coupon is already
	// committed, so a failure here only frees the key; a retry then hits
	// the one-coupon-per-user rule instead of replaying.
	sg.AddStep(Step{
		Name: "remember_result",
		Execute: func(ctx context.Context) error {
			if err := s.store.Complete(ctx, key, couponID.String(), s.ttl); err != nil {
				s.logger.Warn("failed to remember claim result", zap.String("key", key), zap.Error(err))
				if relErr := s.store.Release(ctx, key); relErr != nil {
					s.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
				}
			}
			return nil
		},
	})

	if err := sg.Execute(ctx); err != nil {
		return uuid.Nil, false, err
	}
	return couponID, false, nil
}
