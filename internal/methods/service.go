package methods

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/somalearn/payclaims/internal/auth"
	"github.com/somalearn/payclaims/internal/domain"
	"github.com/somalearn/payclaims/internal/repository"
	"go.uber.org/zap"
)

// Service manages the destination accounts staff publish for receiving
// payments. Deactivating a method never touches claims already submitted
// against it.
type Service struct {
	repo   *repository.MethodRepo
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo *repository.MethodRepo, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// ListActive returns the methods offered to students at submission time.
func (s *Service) ListActive(ctx context.Context, caller auth.Principal) ([]domain.PaymentMethod, error) {
	if caller.IsAnonymous() {
		return nil, domain.ErrUnauthenticated
	}
	return s.repo.ListActive()
}

type CreateInput struct {
	Type        domain.MethodType `json:"type"`
	Account     string            `json:"account"`
	DisplayName string            `json:"display_name"`
}

func (s *Service) Create(ctx context.Context, caller auth.Principal, in CreateInput) (*domain.PaymentMethod, error) {
	if caller.IsAnonymous() {
		return nil, domain.ErrUnauthenticated
	}
	if !caller.IsStaff() {
		return nil, domain.ErrPermissionDenied
	}

	if in.Type == "" {
		return nil, domain.Validationf("type is required")
	}
	if in.Account == "" {
		return nil, domain.Validationf("account is required")
	}
	if in.DisplayName == "" {
		in.DisplayName = in.Account
	}

	now := s.now()
	method := &domain.PaymentMethod{
		ID:          "PM-" + uuid.NewString(),
		Type:        in.Type,
		Account:     in.Account,
		DisplayName: in.DisplayName,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(method); err != nil {
		return nil, err
	}

	s.logger.Info("Payment method created",
		zap.String("method_id", method.ID),
		zap.String("type", string(method.Type)),
		zap.String("staff_id", caller.ID),
	)

	return method, nil
}

// UpdatePatch carries optional field updates; nil fields are untouched.
type UpdatePatch struct {
	Account     *string `json:"account"`
	DisplayName *string `json:"display_name"`
	Active      *bool   `json:"active"`
}

func (s *Service) Update(ctx context.Context, caller auth.Principal, id string, patch UpdatePatch) (*domain.PaymentMethod, error) {
	if caller.IsAnonymous() {
		return nil, domain.ErrUnauthenticated
	}
	if !caller.IsStaff() {
		return nil, domain.ErrPermissionDenied
	}

	method, err := s.repo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("get payment method: %w", err)
	}
	if method == nil {
		return nil, domain.ErrNotFound
	}

	if patch.Account != nil {
		if *patch.Account == "" {
			return nil, domain.Validationf("account must not be empty")
		}
		method.Account = *patch.Account
	}
	if patch.DisplayName != nil {
		method.DisplayName = *patch.DisplayName
	}
	if patch.Active != nil {
		method.Active = *patch.Active
	}
	method.UpdatedAt = s.now()

	if err := s.repo.Update(method); err != nil {
		return nil, err
	}

	s.logger.Info("Payment method updated",
		zap.String("method_id", method.ID),
		zap.Bool("active", method.Active),
		zap.String("staff_id", caller.ID),
	)

	return method, nil
}
