// Package authority implements the grading-authority contract over HTTP.
package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quiz-attempt-engine/internal/domain"
)

// Client talks to a remote grading authority. It satisfies the session's
// GradingAuthority interface: transport failures come back as retryable
// NetworkError values and HTTP statuses map onto the domain taxonomy, so the
// session never has to know it is speaking HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the authority at baseURL. A nil httpClient
// gets a default with a 15s timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) StartAttempt(ctx context.Context, quizID string) (domain.AttemptSeed, error) {
	endpoint := fmt.Sprintf("%s/quizzes/%s/attempts", c.baseURL, url.PathEscape(quizID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return domain.AttemptSeed{}, fmt.Errorf("build start request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.AttemptSeed{}, &domain.NetworkError{Op: "start attempt", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		var seed domain.AttemptSeed
		if err := json.NewDecoder(resp.Body).Decode(&seed); err != nil {
			return domain.AttemptSeed{}, &domain.NetworkError{Op: "decode start response", Err: err}
		}
		return seed, nil
	case http.StatusNotFound:
		return domain.AttemptSeed{}, fmt.Errorf("%w: %s", domain.ErrQuizUnavailable, readMessage(resp.Body))
	case http.StatusForbidden:
		return domain.AttemptSeed{}, fmt.Errorf("%w: %s", domain.ErrNotAuthorized, readMessage(resp.Body))
	default:
		return domain.AttemptSeed{}, &domain.NetworkError{
			Op:  "start attempt",
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, readMessage(resp.Body)),
		}
	}
}

type submitRequest struct {
	Answers []domain.AnswerPayload `json:"answers"`
}

func (c *Client) SubmitAttempt(ctx context.Context, attemptID string, answers []domain.AnswerPayload) (domain.Result, error) {
	body, err := json.Marshal(submitRequest{Answers: answers})
	if err != nil {
		return domain.Result{}, fmt.Errorf("marshal submission: %w", err)
	}

	endpoint := fmt.Sprintf("%s/attempts/%s/submission", c.baseURL, url.PathEscape(attemptID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Result{}, fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Result{}, &domain.NetworkError{Op: "submit attempt", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var result domain.Result
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return domain.Result{}, &domain.NetworkError{Op: "decode submit response", Err: err}
		}
		return result, nil
	case http.StatusConflict:
		// The authority already graded this attempt; its stored result rides
		// along in the response body.
		var result domain.Result
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return domain.Result{}, &domain.NetworkError{Op: "decode stored result", Err: err}
		}
		return domain.Result{}, &domain.AlreadySubmittedError{Result: result}
	case http.StatusNotFound:
		return domain.Result{}, fmt.Errorf("%w: %s", domain.ErrAttemptNotFound, readMessage(resp.Body))
	case http.StatusGone:
		return domain.Result{}, fmt.Errorf("%w: %s", domain.ErrAttemptExpired, readMessage(resp.Body))
	default:
		return domain.Result{}, &domain.NetworkError{
			Op:  "submit attempt",
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, readMessage(resp.Body)),
		}
	}
}

func readMessage(r io.Reader) string {
	var payload struct {
		Message string `json:"message"`
	}
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	if json.Unmarshal(data, &payload) == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(data))
}
