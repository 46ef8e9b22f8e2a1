package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyssal/species-observation/internal/model"
)

type recordedCall struct {
	Method string
	Path   string
	Body   map[string]any
	Bearer string
}

func relayTestServer(t *testing.T, reputation int, role string) (*httptest.Server, *[]recordedCall) {
	t.Helper()
	var calls []recordedCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		calls = append(calls, recordedCall{
			Method: r.Method,
			Path:   r.URL.Path,
			Body:   body,
			Bearer: r.Header.Get("Authorization"),
		})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"userId":     1,
			"reputation": reputation,
			"role":       role,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestObservationValidatedAwardsAuthorAndExpert(t *testing.T) {
	srv, calls := relayTestServer(t, 5, model.RoleUser)
	relay := NewReputationRelay(srv.URL)

	relay.ObservationValidated(context.Background(), 7, 9, model.RoleExpert, "tok")

	require.Len(t, *calls, 2)
	author := (*calls)[0]
	assert.Equal(t, http.MethodPatch, author.Method)
	assert.Equal(t, "/api/users/7/reputation", author.Path)
	assert.Equal(t, float64(ValidationAuthorPoints), author.Body["points"])
	assert.Equal(t, "Bearer tok", author.Bearer)

	validator := (*calls)[1]
	assert.Equal(t, "/api/users/9/reputation", validator.Path)
	assert.Equal(t, float64(ValidationValidatorPoints), validator.Body["points"])
}

func TestObservationValidatedAdminEarnsNothing(t *testing.T) {
	srv, calls := relayTestServer(t, 5, model.RoleUser)
	relay := NewReputationRelay(srv.URL)

	relay.ObservationValidated(context.Background(), 7, 9, model.RoleAdmin, "tok")

	require.Len(t, *calls, 1)
	assert.Equal(t, "/api/users/7/reputation", (*calls)[0].Path)
}

func TestApplyDeltaPromotesAtThreshold(t *testing.T) {
	// Identity store reports the user crossed the threshold but is
	// still USER; the relay must follow up with a role change.
	srv, calls := relayTestServer(t, model.ExpertThreshold, model.RoleUser)
	relay := NewReputationRelay(srv.URL)

	relay.ApplyDelta(context.Background(), 7, 3, "tok")

	require.Len(t, *calls, 2)
	promote := (*calls)[1]
	assert.Equal(t, "/api/users/7/role", promote.Path)
	assert.Equal(t, model.RoleExpert, promote.Body["role"])
}

func TestApplyDeltaNoPromotionWhenAlreadyExpert(t *testing.T) {
	srv, calls := relayTestServer(t, 12, model.RoleExpert)
	relay := NewReputationRelay(srv.URL)

	relay.ApplyDelta(context.Background(), 7, 3, "tok")

	assert.Len(t, *calls, 1)
}

func TestObservationRejectedWithdrawsOnePoint(t *testing.T) {
	srv, calls := relayTestServer(t, 2, model.RoleUser)
	relay := NewReputationRelay(srv.URL)

	relay.ObservationRejected(context.Background(), 7, "tok")

	require.Len(t, *calls, 1)
	assert.Equal(t, float64(RejectionAuthorPoints), (*calls)[0].Body["points"])
}

func TestRelayFailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	relay := NewReputationRelay(srv.URL)

	// Must not panic or propagate; the caller has already committed.
	relay.ObservationValidated(context.Background(), 7, 9, model.RoleExpert, "tok")
	relay.ObservationRejected(context.Background(), 7, "tok")
}
