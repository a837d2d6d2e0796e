package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoginSavesTokenAndListsRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/auth/login":
			_, _ = w.Write([]byte(`{"_id":"u1","name":"Student","userType":"student","token":"tok-1"}`))
		case "/api/users/student-requests":
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"message":"Not authorized, no token"}`))
				return
			}
			_, _ = w.Write([]byte(`[{"_id":"r1","organization":{"name":"Test Org"},"usn":"ORGUSN1","yearOfGraduation":2025,"certificateType":"TestType","status":"accepted","issuanceAmount":"50000000000000000","remarks":"Approved for testing"},
				{"_id":"r2","organization":{"name":"Other"},"usn":"ORGUSN2","yearOfGraduation":2026,"certificateType":"TestType2","status":"rejected","issuanceAmount":"0"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tokenFile := filepath.Join(t.TempDir(), "token")

	out, err := run(t, "--api", srv.URL, "--token-file", tokenFile, "login", "--wallet", "0xabc", "--password", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Student (student)")

	saved, err := os.ReadFile(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "tok-1\n", string(saved))

	out, err = run(t, "--api", srv.URL, "--token-file", tokenFile, "requests", "--search", "approved")
	require.NoError(t, err)
	assert.Contains(t, out, "ORGUSN1")
	assert.Contains(t, out, "0.05")
	assert.NotContains(t, out, "ORGUSN2")
}

func TestRequestsWithoutTokenFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not authorized, no token"}`))
	}))
	defer srv.Close()

	_, err := run(t, "--api", srv.URL, "--token-file", filepath.Join(t.TempDir(), "missing"), "requests")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not authorized, no token")
}

func TestFormatFee(t *testing.T) {
	assert.Equal(t, "0.05", formatFee("50000000000000000"))
	assert.Equal(t, "0", formatFee("0"))
	assert.Equal(t, "n/a", formatFee("n/a"))
}
