package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

func TestClientErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{name: "validation", status: http.StatusBadRequest, body: `{"message":"title is required"}`, wantErr: ErrValidationFailed, wantMsg: "title is required"},
		{name: "conflict", status: http.StatusConflict, body: `{"message":"User already exists"}`, wantErr: ErrConflict},
		{name: "not found", status: http.StatusNotFound, body: ``, wantErr: ErrNotFound},
		{name: "forbidden", status: http.StatusForbidden, body: `{}`, wantErr: ErrUnauthorized},
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"boom"}`, wantErr: ErrServerError},
		{name: "bad gateway", status: http.StatusBadGateway, body: `oops`, wantErr: ErrServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := New(srv.URL)
			err := c.CreateForum(context.Background(), Forum{Title: "x"})

			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, tc.status, StatusOf(err))
			if tc.wantMsg != "" {
				assert.Equal(t, tc.wantMsg, Message(err, "fallback"))
			}
		})
	}
}

func TestClientNetworkUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, WithTimeout(time.Second))
	_, err := c.ListTrainers(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetworkUnavailable)
	assert.Equal(t, 0, StatusOf(err))
	assert.Equal(t, "fallback", Message(err, "fallback"))
}

func TestClientSendsBearerTokenAndBody(t *testing.T) {
	var gotAuth string
	var gotBody voteRequest
	var gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", WithTokenSource(staticToken("tok")))
	require.NoError(t, c.Vote(context.Background(), "f1", "u1", Downvote))

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "/forums/f1/vote", gotPath)
	assert.Equal(t, voteRequest{UserID: "u1", VoteType: Downvote}, gotBody)
}

func TestClientDecodesResources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/trainers/t1":
			_, _ = w.Write([]byte(`{"_id":"t1","fullName":"Alex Doe","email":"alex@example.com","availableDays":["Mon","Wed"],"availableTime":"9:00, 13:00, 17:00"}`))
		case "/create-payment-intent":
			var req PaymentIntentRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Price != 49 {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"clientSecret":"pi_1_secret_2"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)

	trainer, err := c.GetTrainer(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "Alex Doe", trainer.DisplayName())
	assert.Equal(t, []string{"Mon", "Wed"}, trainer.AvailableDays)

	intent, err := c.CreatePaymentIntent(context.Background(), PaymentIntentRequest{Price: 49, TrainerID: "t1", SlotID: "4", Email: "m@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret_2", intent.ClientSecret)

	_, err = c.GetClass(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleTrainer, ParseRole("trainer"))
	assert.Equal(t, RoleMember, ParseRole(""))
	assert.Equal(t, RoleMember, ParseRole("superuser"))
}
