package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"tuition/internal/client"
	dErrors "tuition/pkg/domain-errors"
	"tuition/pkg/platform/httputil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRouter answers like the router with one user and two payments, one
// of them orphaned.
func fakeRouter(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["email"] == "taken@x.io" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeDuplicateEmail, "email already registered"))
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, client.User{ID: 2, Name: body["name"], Email: body["email"]})
	})
	mux.HandleFunc("GET /api/auth/users", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, []client.User{{ID: 1, Name: "Ana", Email: "ana@x.io"}})
	})
	mux.HandleFunc("POST /api/payments/payment", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusCreated, client.Payment{ID: 3, UserID: 999999, Amount: 10})
	})
	mux.HandleFunc("GET /api/payments/payments", func(w http.ResponseWriter, r *http.Request) {
		all := []client.Payment{{ID: 1, UserID: 1, Amount: 500}, {ID: 2, UserID: 999999, Amount: 10}}
		if r.URL.Query().Get("userId") == "1" {
			all = all[:1]
		}
		httputil.WriteJSON(w, http.StatusOK, all)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, gateway string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--gateway", gateway}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestUsersCommands(t *testing.T) {
	srv := fakeRouter(t)

	out, err := execute(t, srv.URL, "users", "register", "--name", "Bo", "--email", "bo@x.io", "--password", "pw")
	require.NoError(t, err)
	assert.Equal(t, "registered user 2 (bo@x.io)\n", out)

	out, err = execute(t, srv.URL, "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "ana@x.io")

	_, err = execute(t, srv.URL, "users", "register", "--email", "taken@x.io", "--password", "pw")
	require.Error(t, err)
	assert.Equal(t, "error: email: already registered", describe(err))
}

func TestPaymentsCommands(t *testing.T) {
	srv := fakeRouter(t)

	out, err := execute(t, srv.URL, "payments", "create", "--user", "999999", "--amount", "10")
	require.NoError(t, err)
	assert.Equal(t, "recorded payment 3: user 999999, amount 10\n", out)

	out, err = execute(t, srv.URL, "--json", "payments", "list", "--user", "1")
	require.NoError(t, err)
	var listed []client.Payment
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	assert.Equal(t, []client.Payment{{ID: 1, UserID: 1, Amount: 500}}, listed)
}

func TestReconcileCommand(t *testing.T) {
	srv := fakeRouter(t)

	out, err := execute(t, srv.URL, "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "users: 1, payments: 2, orphaned payments: 1")
	assert.Contains(t, out, "999999")

	_, err = execute(t, srv.URL, "reconcile", "--fail")
	assert.ErrorIs(t, err, errOrphansFound)
}

func TestOutageMessage(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := execute(t, url, "users", "list")

	require.Error(t, err)
	assert.Equal(t,
		"error: the portal is temporarily unavailable, please try again later (upstream_unavailable)",
		describe(err))
}

func TestDescribe(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&client.InfrastructureError{Code: dErrors.CodeNoRoute}, "error: the portal is temporarily unavailable, please try again later (no_route)"},
		{&client.InfrastructureError{Code: dErrors.CodeUpstreamTimeout}, "error: the portal is temporarily unavailable, please try again later (upstream_timeout)"},
		{&client.DomainError{Code: dErrors.CodeValidation, Message: "email must be a valid email"}, "error: invalid input: email must be a valid email"},
		{&client.DomainError{Code: dErrors.CodeNotFound, Message: "user not found"}, "error: not found: user not found"},
		{errors.New("boom"), "error: boom"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, describe(tc.err))
	}
}
