package notify

import (
	"context"

	"github.com/somalearn/payclaims/internal/domain"
	"go.uber.org/zap"
)

// Notifier informs the student that their claim changed status. Delivery is
// best-effort and not required for correctness; failures are logged by the
// caller and never propagated.
type Notifier interface {
	ClaimStatusChanged(ctx context.Context, claim *domain.PaymentRequest)
}

// LogNotifier writes status changes to the log. Stands in for a real
// delivery channel (mail, SMS, push).
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) ClaimStatusChanged(ctx context.Context, claim *domain.PaymentRequest) {
	n.logger.Info("Claim status changed",
		zap.String("claim_id", claim.ID),
		zap.String("student_id", claim.StudentID),
		zap.String("course_id", claim.CourseID),
		zap.String("status", string(claim.Status)),
	)
}
