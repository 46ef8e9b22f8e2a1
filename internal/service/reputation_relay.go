package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/abyssal/species-observation/internal/model"
)

// Points awarded or withdrawn by moderation outcomes.
const (
	ValidationAuthorPoints    = 3  // observation author, on validation
	ValidationValidatorPoints = 1  // EXPERT validator, on validation
	RejectionAuthorPoints     = -1 // observation author, on rejection
)

// ReputationRelay propagates reputation changes from the observation
// service to the identity store over plain HTTP.
//
// The relay is fire-and-forget: a failed call is logged but never
// retried, queued or compensated, and the observation state transition
// that triggered it stays committed regardless of the outcome. There
// is no idempotency token, so a client retrying a validate request
// after a transient network failure can produce a duplicate delta.
// See the relay notes in DESIGN.md before changing either behavior.
type ReputationRelay struct {
	BaseURL string
	Client  *http.Client
}

func NewReputationRelay(baseURL string) *ReputationRelay {
	return &ReputationRelay{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// reputationResult is the subset of the identity store's reputation
// response the relay acts on.
type reputationResult struct {
	Reputation int    `json:"reputation"`
	Role       string `json:"role"`
}

// ObservationValidated awards +3 to the observation author and, when
// the validator is an EXPERT, +1 to the validator. ADMIN validators
// earn nothing. The caller's bearer token authorizes the downstream
// calls.
func (r *ReputationRelay) ObservationValidated(ctx context.Context, authorID, validatorID uint64, validatorRole, token string) {
	r.ApplyDelta(ctx, authorID, ValidationAuthorPoints, token)
	if validatorRole == model.RoleExpert {
		r.ApplyDelta(ctx, validatorID, ValidationValidatorPoints, token)
	}
}

// ObservationRejected withdraws one point from the author. The
// identity store clamps the result at zero.
func (r *ReputationRelay) ObservationRejected(ctx context.Context, authorID uint64, token string) {
	r.ApplyDelta(ctx, authorID, RejectionAuthorPoints, token)
}

// ApplyDelta sends a reputation delta for one user. After a successful
// delta, if the returned reputation crosses the expert threshold and
// the user is still a USER, a follow-up promotion call is issued; its
// failure is likewise swallowed.
func (r *ReputationRelay) ApplyDelta(ctx context.Context, userID uint64, points int, token string) {
	var result reputationResult
	url := fmt.Sprintf("%s/api/users/%d/reputation", r.BaseURL, userID)
	if err := r.patch(ctx, url, map[string]any{"points": points}, token, &result); err != nil {
		log.Printf("reputation relay: delta %+d for user %d failed: %v", points, userID, err)
		return
	}
	if result.Reputation >= model.ExpertThreshold && result.Role == model.RoleUser {
		r.promote(ctx, userID, token)
	}
}

func (r *ReputationRelay) promote(ctx context.Context, userID uint64, token string) {
	url := fmt.Sprintf("%s/api/users/%d/role", r.BaseURL, userID)
	if err := r.patch(ctx, url, map[string]any{"role": model.RoleExpert}, token, nil); err != nil {
		log.Printf("reputation relay: promotion of user %d failed: %v", userID, err)
	}
}

func (r *ReputationRelay) patch(ctx context.Context, url string, payload map[string]any, token string, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("identity store returned %d", resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
