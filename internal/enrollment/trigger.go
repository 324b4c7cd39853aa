package enrollment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Trigger grants a student access to a course once their payment claim is
// verified. Implementations are external collaborators; the workflow calls
// GrantAccess once per approval and surfaces failure instead of retrying.
type Trigger interface {
	GrantAccess(ctx context.Context, studentID, courseID string) error
}

type grantRequest struct {
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
}

// HTTPTrigger posts enrollment grants to the course platform's API.
type HTTPTrigger struct {
	url    string
	token  string
	client *http.Client
}

func NewHTTPTrigger(url, token string) *HTTPTrigger {
	return &HTTPTrigger{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *HTTPTrigger) GrantAccess(ctx context.Context, studentID, courseID string) error {
	body, err := json.Marshal(grantRequest{StudentID: studentID, CourseID: courseID})
	if err != nil {
		return fmt.Errorf("marshal grant request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("create grant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send grant request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("enrollment endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// LogTrigger records grants in the log only. Used when no enrollment
// endpoint is configured (local development).
type LogTrigger struct {
	logger *zap.Logger
}

func NewLogTrigger(logger *zap.Logger) *LogTrigger {
	return &LogTrigger{logger: logger}
}

func (t *LogTrigger) GrantAccess(ctx context.Context, studentID, courseID string) error {
	t.logger.Info("Enrollment granted (log only)",
		zap.String("student_id", studentID),
		zap.String("course_id", courseID),
	)
	return nil
}
