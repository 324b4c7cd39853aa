package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/somalearn/payclaims/internal/auth"
	"github.com/somalearn/payclaims/internal/domain"
	"github.com/somalearn/payclaims/internal/methods"
	"github.com/somalearn/payclaims/internal/repository"
	"github.com/somalearn/payclaims/internal/submission"
	"github.com/somalearn/payclaims/internal/verification"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	submissionSvc   *submission.Service
	verificationSvc *verification.Service
	methodsSvc      *methods.Service
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the workflow error taxonomy onto HTTP responses.
// Business errors are returned as-is to the caller; only unknown errors
// collapse into a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var duplicateErr *domain.DuplicateClaimError
	var enrollmentErr *domain.EnrollmentFailedError

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidPaymentMethod):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
			"code":  "invalid_payment_method",
		})
	case errors.Is(err, domain.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": err.Error(),
			"code":  "invalid_transition",
		})
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Msg)
	case errors.As(err, &duplicateErr):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":       duplicateErr.Error(),
			"code":        "duplicate_claim",
			"existing_id": duplicateErr.ExistingID,
			"status":      duplicateErr.Status,
		})
	case errors.As(err, &enrollmentErr):
		// Verification stood; only the downstream grant failed. The claim
		// is attached so staff see the partial state explicitly.
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":             enrollmentErr.Error(),
			"code":              "enrollment_failed",
			"enrollment_failed": true,
			"claim":             enrollmentErr.Claim,
		})
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

// --- payment methods ---

func (h *Handlers) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	active, err := h.methodsSvc.ListActive(r.Context(), principal(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if active == nil {
		active = []domain.PaymentMethod{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"methods": active})
}

func (h *Handlers) CreatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var in methods.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	method, err := h.methodsSvc.Create(r.Context(), principal(r), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, method)
}

func (h *Handlers) UpdatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch methods.UpdatePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	method, err := h.methodsSvc.Update(r.Context(), principal(r), id, patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, method)
}

// --- claims ---

func (h *Handlers) SubmitClaim(w http.ResponseWriter, r *http.Request) {
	var in submission.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	claim, err := h.submissionSvc.Submit(r.Context(), principal(r), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, claim)
}

func (h *Handlers) GetClaim(w http.ResponseWriter, r *http.Request) {
	claim, err := h.submissionSvc.Get(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (h *Handlers) ListClaims(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.ClaimFilter{
		Status:          q.Get("status"),
		StudentID:       q.Get("student_id"),
		CourseID:        q.Get("course_id"),
		MethodID:        q.Get("method_id"),
		NeedsEnrollment: q.Get("needs_enrollment") == "true",
		Page:            parseIntDefault(q.Get("page"), 1),
		Limit:           parseIntDefault(q.Get("limit"), 50),
	}

	claims, total, err := h.submissionSvc.List(r.Context(), principal(r), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if claims == nil {
		claims = []domain.PaymentRequest{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"claims": claims,
		"total":  total,
		"page":   filter.Page,
		"limit":  filter.Limit,
	})
}

type verifyRequest struct {
	Decision verification.Decision `json:"decision"`
	Notes    string                `json:"notes"`
}

func (h *Handlers) VerifyClaim(w http.ResponseWriter, r *http.Request) {
	var in verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	claim, err := h.verificationSvc.Verify(r.Context(), principal(r),
		chi.URLParam(r, "id"), in.Decision, in.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

// --- dashboard ---

func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	stats, volumes, err := h.verificationSvc.Dashboard(r.Context(), principal(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if volumes == nil {
		volumes = []repository.MethodVolume{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"claims": map[string]int{
			"total":    stats.Total,
			"pending":  stats.Pending,
			"verified": stats.Verified,
			"rejected": stats.Rejected,
			"expired":  stats.Expired,
		},
		"amounts": map[string]float64{
			"pending":  stats.PendingAmount,
			"verified": stats.VerifiedAmount,
		},
		"enrollment_failures": stats.EnrollmentFailures,
		"by_method":           volumes,
	})
}
