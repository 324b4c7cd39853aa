package submission

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/somalearn/payclaims/internal/auth"
	"github.com/somalearn/payclaims/internal/domain"
	"github.com/somalearn/payclaims/internal/notify"
	"github.com/somalearn/payclaims/internal/repository"
	"go.uber.org/zap"
)

var (
	student = auth.Principal{ID: "student-1", Role: auth.RoleStudent}
	staff   = auth.Principal{ID: "staff-1", Role: auth.RoleStaff}
)

func newTestService(t *testing.T) (*Service, *repository.ClaimRepo) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "submission-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	db, err := repository.InitDB(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to init DB: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		os.RemoveAll(tmpDir)
	})

	claims := repository.NewClaimRepo(db)
	methods := repository.NewMethodRepo(db)

	now := time.Now().UTC().Truncate(time.Second)
	seed := []*domain.PaymentMethod{
		{ID: "PM-active", Type: domain.MethodMpesa, Account: "+255712000001",
			DisplayName: "M-Pesa Till", Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: "PM-retired", Type: domain.MethodTigoPesa, Account: "+255652000002",
			DisplayName: "Old Till", Active: false, CreatedAt: now, UpdatedAt: now},
	}
	for _, m := range seed {
		if err := methods.Insert(m); err != nil {
			t.Fatalf("Failed to seed method %s: %v", m.ID, err)
		}
	}

	logger := zap.NewNop()
	svc := NewService(claims, methods, notify.NewLogNotifier(logger), logger, 48*time.Hour)
	return svc, claims
}

func validInput() Input {
	return Input{
		CourseID:       "course-1",
		MethodID:       "PM-active",
		SenderAccount:  "+255712345678",
		TransactionRef: "QA12BC34DE",
		Amount:         500,
	}
}

func TestSubmitCreatesPendingClaim(t *testing.T) {
	svc, _ := newTestService(t)
	submitted := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return submitted }

	claim, err := svc.Submit(context.Background(), student, validInput())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if claim.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending", claim.Status)
	}
	if claim.StudentID != "student-1" {
		t.Errorf("student_id = %s", claim.StudentID)
	}
	if !claim.ExpiresAt.Equal(submitted.Add(48 * time.Hour)) {
		t.Errorf("expires_at = %v, want created+48h", claim.ExpiresAt)
	}
	if claim.ID == "" {
		t.Error("claim id not assigned")
	}
}

func TestSubmitUnauthenticated(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Submit(context.Background(), auth.Principal{}, validInput())
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []struct {
		name   string
		mutate func(*Input)
	}{
		{"missing course", func(in *Input) { in.CourseID = "" }},
		{"missing method", func(in *Input) { in.MethodID = "" }},
		{"missing sender", func(in *Input) { in.SenderAccount = "" }},
		{"missing ref", func(in *Input) { in.TransactionRef = "" }},
		{"zero amount", func(in *Input) { in.Amount = 0 }},
		{"negative amount", func(in *Input) { in.Amount = -10 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)

			_, err := svc.Submit(context.Background(), student, in)
			var validationErr *domain.ValidationError
			if !errors.As(err, &validationErr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestSubmitInactiveMethod(t *testing.T) {
	svc, _ := newTestService(t)

	in := validInput()
	in.MethodID = "PM-retired"
	if _, err := svc.Submit(context.Background(), student, in); !errors.Is(err, domain.ErrInvalidPaymentMethod) {
		t.Errorf("inactive method: expected ErrInvalidPaymentMethod, got %v", err)
	}

	in.MethodID = "PM-missing"
	if _, err := svc.Submit(context.Background(), student, in); !errors.Is(err, domain.ErrInvalidPaymentMethod) {
		t.Errorf("unknown method: expected ErrInvalidPaymentMethod, got %v", err)
	}
}

// Scenario: a second submit for the same course returns the first claim's id.
func TestSubmitDuplicateReturnsExistingID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, student, validInput())
	if err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}

	_, err = svc.Submit(ctx, student, validInput())
	var dup *domain.DuplicateClaimError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateClaimError, got %v", err)
	}
	if dup.ExistingID != first.ID {
		t.Errorf("existing id = %s, want %s", dup.ExistingID, first.ID)
	}
}

func TestSubmitAfterRejection(t *testing.T) {
	svc, claims := newTestService(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, student, validInput())
	if err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}
	if ok, _ := claims.MarkRejected(first.ID, "wrong amount"); !ok {
		t.Fatal("MarkRejected reported no-op")
	}

	second, err := svc.Submit(ctx, student, validInput())
	if err != nil {
		t.Fatalf("resubmit after rejection failed: %v", err)
	}
	if second.ID == first.ID {
		t.Error("resubmission reused the rejected claim's id")
	}
	if second.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending", second.Status)
	}
}

func TestGetVisibility(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	claim, err := svc.Submit(ctx, student, validInput())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Owner and staff see the claim.
	if _, err := svc.Get(ctx, student, claim.ID); err != nil {
		t.Errorf("owner Get failed: %v", err)
	}
	if _, err := svc.Get(ctx, staff, claim.ID); err != nil {
		t.Errorf("staff Get failed: %v", err)
	}

	// Another student does not.
	other := auth.Principal{ID: "student-2", Role: auth.RoleStudent}
	if _, err := svc.Get(ctx, other, claim.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another student, got %v", err)
	}

	if _, err := svc.Get(ctx, staff, "PRQ-missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing claim, got %v", err)
	}
}

func TestListScopesStudentsToOwnClaims(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, student, validInput()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	other := auth.Principal{ID: "student-2", Role: auth.RoleStudent}
	if _, err := svc.Submit(ctx, other, validInput()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// A student asking for another student's claims still gets their own.
	claims, total, err := svc.List(ctx, student, repository.ClaimFilter{StudentID: "student-2"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || claims[0].StudentID != "student-1" {
		t.Errorf("student list not scoped: total=%d claims=%+v", total, claims)
	}

	// Staff see everything.
	_, total, err = svc.List(ctx, staff, repository.ClaimFilter{})
	if err != nil {
		t.Fatalf("staff List failed: %v", err)
	}
	if total != 2 {
		t.Errorf("staff total = %d, want 2", total)
	}
}
