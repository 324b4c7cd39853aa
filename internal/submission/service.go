package submission

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/somalearn/payclaims/internal/auth"
	"github.com/somalearn/payclaims/internal/domain"
	"github.com/somalearn/payclaims/internal/notify"
	"github.com/somalearn/payclaims/internal/repository"
	"go.uber.org/zap"
)

// Service accepts student payment claims and answers claim queries. The
// duplicate guard lives in the store (unique partial index), not here: the
// service never does a check-then-create.
type Service struct {
	claims   *repository.ClaimRepo
	methods  *repository.MethodRepo
	notifier notify.Notifier
	logger   *zap.Logger
	window   time.Duration
	now      func() time.Time
}

func NewService(
	claims *repository.ClaimRepo,
	methods *repository.MethodRepo,
	notifier notify.Notifier,
	logger *zap.Logger,
	window time.Duration,
) *Service {
	return &Service{
		claims:   claims,
		methods:  methods,
		notifier: notifier,
		logger:   logger,
		window:   window,
		now:      time.Now,
	}
}

// Input is a student's self-reported transfer claim.
type Input struct {
	CourseID       string  `json:"course_id"`
	MethodID       string  `json:"method_id"`
	SenderAccount  string  `json:"sender_account"`
	TransactionRef string  `json:"transaction_ref"`
	Amount         float64 `json:"amount"`
}

// Submit records a pending claim for the caller. Enrollment is never
// granted here; the payment is unverified until staff decide.
func (s *Service) Submit(ctx context.Context, caller auth.Principal, in Input) (*domain.PaymentRequest, error) {
	if caller.IsAnonymous() {
		return nil, domain.ErrUnauthenticated
	}

	if in.CourseID == "" {
		return nil, domain.Validationf("course_id is required")
	}
	if in.MethodID == "" {
		return nil, domain.Validationf("method_id is required")
	}
	if in.SenderAccount == "" {
		return nil, domain.Validationf("sender_account is required")
	}
	if in.TransactionRef == "" {
		return nil, domain.Validationf("transaction_ref is required")
	}
	if in.Amount <= 0 {
		return nil, domain.Validationf("amount must be greater than zero")
	}

	method, err := s.methods.GetByID(in.MethodID)
	if err != nil {
		return nil, fmt.Errorf("get payment method: %w", err)
	}
	if method == nil || !method.Active {
		return nil, domain.ErrInvalidPaymentMethod
	}

	now := s.now()
	claim := &domain.PaymentRequest{
		ID:             "PRQ-" + uuid.NewString(),
		StudentID:      caller.ID,
		CourseID:       in.CourseID,
		MethodID:       method.ID,
		Amount:         in.Amount,
		SenderAccount:  in.SenderAccount,
		TransactionRef: in.TransactionRef,
		Status:         domain.StatusPending,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.window),
	}

	if err := s.claims.Insert(claim); err != nil {
		return nil, err
	}

	s.logger.Info("Claim submitted",
		zap.String("claim_id", claim.ID),
		zap.String("student_id", claim.StudentID),
		zap.String("course_id", claim.CourseID),
		zap.String("method_id", claim.MethodID),
		zap.Float64("amount", claim.Amount),
	)

	s.notifier.ClaimStatusChanged(ctx, claim)

	return claim, nil
}

// Get fetches a single claim. Students may only see their own claims;
// staff may see any.
func (s *Service) Get(ctx context.Context, caller auth.Principal, id string) (*domain.PaymentRequest, error) {
	if caller.IsAnonymous() {
		return nil, domain.ErrUnauthenticated
	}

	claim, err := s.claims.GetByID(id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get claim: %w", err)
	}

	if !caller.IsStaff() && claim.StudentID != caller.ID {
		return nil, domain.ErrNotFound
	}

	return claim, nil
}

// List returns claims matching the filter. Non-staff callers are always
// scoped to their own claims regardless of the requested filter.
func (s *Service) List(ctx context.Context, caller auth.Principal, filter repository.ClaimFilter) ([]domain.PaymentRequest, int, error) {
	if caller.IsAnonymous() {
		return nil, 0, domain.ErrUnauthenticated
	}

	if !caller.IsStaff() {
		filter.StudentID = caller.ID
		filter.NeedsEnrollment = false
	}

	return s.claims.List(filter)
}
