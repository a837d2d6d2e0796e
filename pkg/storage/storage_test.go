package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

func TestValidCID(t *testing.T) {
	assert.True(t, ValidCID(testCID))
	assert.True(t, ValidCID("bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"))
	assert.False(t, ValidCID(""))
	assert.False(t, ValidCID("QmMockCID123456789"))
	assert.False(t, ValidCID("../../etc/passwd"))
}

func TestIPFSPinFile(t *testing.T) {
	var gotAuth, gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/add", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("pin"))
		gotAuth = r.Header.Get("Authorization")

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName = header.Filename
		gotBody = string(data)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"Name": header.Filename, "Hash": testCID, "Size": "12"})
	}))
	defer srv.Close()

	client := NewIPFSClient(IPFSConfig{APIURL: srv.URL, AuthToken: "secret"})
	cid, err := client.PinFile(context.Background(), "cert.pdf", strings.NewReader("%PDF-content"))
	require.NoError(t, err)

	assert.Equal(t, testCID, cid)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "cert.pdf", gotName)
	assert.Equal(t, "%PDF-content", gotBody)
}

func TestIPFSPinFileError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"Message":"repo is locked","Code":0}`))
	}))
	defer srv.Close()

	client := NewIPFSClient(IPFSConfig{APIURL: srv.URL})
	_, err := client.PinFile(context.Background(), "cert.pdf", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repo is locked")
}

func TestIPFSFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ipfs/"+testCID {
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.3"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewIPFSClient(IPFSConfig{GatewayURL: srv.URL + "/", Timeout: 5 * time.Second})

	body, err := client.Fetch(context.Background(), testCID)
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	body.Close()
	assert.Equal(t, "%PDF-1.3", string(data))

	_, err = client.Fetch(context.Background(), "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi")
	assert.ErrorIs(t, err, ErrContentNotFound)

	_, err = client.Fetch(context.Background(), "not-a-cid")
	assert.Error(t, err)
}

func TestIPFSUnpin(t *testing.T) {
	var gotArg string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/pin/rm", r.URL.Path)
		gotArg = r.URL.Query().Get("arg")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Pins":["` + gotArg + `"]}`))
	}))
	defer srv.Close()

	client := NewIPFSClient(IPFSConfig{APIURL: srv.URL})
	require.NoError(t, client.UnpinFile(context.Background(), testCID))
	assert.Equal(t, testCID, gotArg)
}

func TestS3AgainstCompatibleEndpoint(t *testing.T) {
	var methods, paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		paths = append(paths, r.URL.Path)
		_, _ = io.Copy(io.Discard, r.Body)
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("archived"))
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("ETag", `"abc"`)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	client, err := NewS3Client(ctx, S3Config{
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
	})
	require.NoError(t, err)

	require.NoError(t, client.Upload(ctx, "certs", "certificates/a.pdf", strings.NewReader("archived")))

	body, err := client.Download(ctx, "certs", "certificates/a.pdf")
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	body.Close()
	assert.Equal(t, "archived", string(data))

	require.NoError(t, client.Delete(ctx, "certs", "certificates/a.pdf"))

	require.Len(t, methods, 3)
	assert.Equal(t, []string{http.MethodPut, http.MethodGet, http.MethodDelete}, methods)
	for _, p := range paths {
		assert.Equal(t, "/certs/certificates/a.pdf", p)
	}

	url, err := client.GetPresignedURL(ctx, "certs", "certificates/a.pdf", 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "/certs/certificates/a.pdf")
	assert.Contains(t, url, "X-Amz-Signature=")
}
