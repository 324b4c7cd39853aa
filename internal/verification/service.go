package verification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/somalearn/payclaims/internal/auth"
	"github.com/somalearn/payclaims/internal/domain"
	"github.com/somalearn/payclaims/internal/enrollment"
	"github.com/somalearn/payclaims/internal/notify"
	"github.com/somalearn/payclaims/internal/repository"
	"go.uber.org/zap"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Service is the staff-only transition of a claim out of pending. Every
// transition is a conditional update guarded on status, so two concurrent
// decisions on the same claim resolve to exactly one winner.
type Service struct {
	claims   *repository.ClaimRepo
	enroll   enrollment.Trigger
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(
	claims *repository.ClaimRepo,
	enroll enrollment.Trigger,
	notifier notify.Notifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		claims:   claims,
		enroll:   enroll,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Verify decides a pending claim. On approve the claim becomes verified and
// the enrollment trigger fires once; if the trigger fails the claim stays
// verified and an EnrollmentFailedError is returned — that partial state is
// deliberate and must be reconciled manually, never rolled back.
func (s *Service) Verify(ctx context.Context, caller auth.Principal, requestID string, decision Decision, notes string) (*domain.PaymentRequest, error) {
	if caller.IsAnonymous() {
		return nil, domain.ErrUnauthenticated
	}
	if !caller.IsStaff() {
		return nil, domain.ErrPermissionDenied
	}

	switch decision {
	case DecisionApprove, DecisionReject:
	default:
		return nil, domain.Validationf("decision must be %q or %q", DecisionApprove, DecisionReject)
	}

	claim, err := s.claims.GetByID(requestID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get claim: %w", err)
	}

	if claim.Status != domain.StatusPending {
		return nil, domain.ErrInvalidTransition
	}

	now := s.now()
	if claim.ExpiredAt(now) {
		// Stale but not yet swept: treat as expired, and expire the row
		// here so the sweeper stays a convenience, not a dependency.
		if _, err := s.claims.ExpireIfPending(requestID, now); err != nil {
			s.logger.Warn("Failed to lazily expire claim",
				zap.String("claim_id", requestID), zap.Error(err))
		}
		return nil, domain.ErrInvalidTransition
	}

	if decision == DecisionReject {
		ok, err := s.claims.MarkRejected(requestID, notes)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrInvalidTransition
		}

		claim.Status = domain.StatusRejected
		claim.AdminNotes = notes

		s.logger.Info("Claim rejected",
			zap.String("claim_id", claim.ID),
			zap.String("staff_id", caller.ID),
		)
		s.notifier.ClaimStatusChanged(ctx, claim)
		return claim, nil
	}

	ok, err := s.claims.MarkVerified(requestID, now, caller.ID, notes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidTransition
	}

	claim.Status = domain.StatusVerified
	claim.VerifiedAt = &now
	claim.VerifiedBy = caller.ID
	claim.AdminNotes = notes

	s.logger.Info("Claim verified",
		zap.String("claim_id", claim.ID),
		zap.String("student_id", claim.StudentID),
		zap.String("course_id", claim.CourseID),
		zap.String("staff_id", caller.ID),
	)
	s.notifier.ClaimStatusChanged(ctx, claim)

	if err := s.enroll.GrantAccess(ctx, claim.StudentID, claim.CourseID); err != nil {
		s.logger.Error("Enrollment grant failed after verification",
			zap.String("claim_id", claim.ID),
			zap.String("student_id", claim.StudentID),
			zap.String("course_id", claim.CourseID),
			zap.Error(err),
		)
		claim.EnrollmentError = err.Error()
		if dbErr := s.claims.SetEnrollmentError(claim.ID, err.Error()); dbErr != nil {
			s.logger.Error("Failed to record enrollment error",
				zap.String("claim_id", claim.ID), zap.Error(dbErr))
		}
		return claim, &domain.EnrollmentFailedError{Claim: claim, Err: err}
	}

	return claim, nil
}

// Dashboard returns staff claim statistics.
func (s *Service) Dashboard(ctx context.Context, caller auth.Principal) (*repository.ClaimStats, []repository.MethodVolume, error) {
	if caller.IsAnonymous() {
		return nil, nil, domain.ErrUnauthenticated
	}
	if !caller.IsStaff() {
		return nil, nil, domain.ErrPermissionDenied
	}

	stats, err := s.claims.GetStats()
	if err != nil {
		return nil, nil, fmt.Errorf("get stats: %w", err)
	}

	volumes, err := s.claims.GetVolumeByMethod()
	if err != nil {
		return nil, nil, fmt.Errorf("get volumes: %w", err)
	}

	return stats, volumes, nil
}
