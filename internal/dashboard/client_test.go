package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClientLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "0xstudent", body["walletAddress"])
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"_id":"u1","name":"Student","walletAddress":"0xstudent","userType":"student","token":"tok123"}`))
		case "/api/users/student-requests":
			assert.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"_id":"r1","organization":{"_id":"o1","name":"Test Org","walletAddress":"0xorg"},"student":"u1","usn":"ORGUSN1","yearOfGraduation":2025,"certificateType":"TestType","status":"pending","issuanceAmount":"0","createdAt":"2025-01-02T03:04:05Z"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, 0)
	res, err := c.Login(context.Background(), "0xstudent", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok123", res.Token)
	assert.Equal(t, "tok123", c.Token())

	reqs, err := c.StudentRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "Test Org", reqs[0].Organization.Name)
	assert.Equal(t, "u1", reqs[0].Student.ID)
	assert.Equal(t, 2025, reqs[0].YearOfGraduation)
}

func TestAPIClientRequestCertificate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/users/request-certificate", r.URL.Path)
		var in CreateRequestInput
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "50000000000000000", in.IssuanceAmount)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"Certificate request submitted successfully","request":{"_id":"r9","status":"pending","issuanceAmount":"50000000000000000"}}`))
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, 0)
	req, msg, err := c.RequestCertificate(context.Background(), CreateRequestInput{
		OrganizationID: "o1", USN: "ORGUSN1", YearOfGraduation: 2025, CertificateType: "TestType",
		IssuanceAmount: "50000000000000000",
	})
	require.NoError(t, err)
	assert.Equal(t, "Certificate request submitted successfully", msg)
	assert.Equal(t, "r9", req.ID)
}

func TestAPIClientErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Invalid status. Must be 'accepted' or 'rejected'"}`))
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, 0)
	_, err := c.UpdateStatus(context.Background(), "r1", "bogus", "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "Invalid status")
}

func TestAPIClientErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewAPIClient(srv.URL, 0).Organizations(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestDownloadURL(t *testing.T) {
	c := NewAPIClient("http://localhost:5000/", 0)
	assert.Equal(t, "http://localhost:5000/api/ipfs/download/QmHash", c.DownloadURL("QmHash"))
}

func TestAPIClientExport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/organization-requests/export", r.URL.Path)
		assert.Equal(t, "csv", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("Request ID,Student\n"))
	}))
	defer srv.Close()

	data, err := NewAPIClient(srv.URL, 0).ExportOrganizationRequests(context.Background(), "csv")
	require.NoError(t, err)
	assert.Equal(t, "Request ID,Student\n", string(data))
}
