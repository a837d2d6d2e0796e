package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrContentNotFound = errors.New("content not found")

var cidPattern = regexp.MustCompile(`^(Qm[1-9A-HJ-NP-Za-km-z]{44}|b[a-z2-7]{58,})$`)

// ValidCID reports whether s looks like a CIDv0 or base32 CIDv1.
func ValidCID(s string) bool {
	return cidPattern.MatchString(s)
}

type IPFSClient interface {
	PinFile(ctx context.Context, name string, body io.Reader) (string, error)
	UnpinFile(ctx context.Context, cid string) error
	// Fetch streams content from the gateway. The caller closes the reader.
	Fetch(ctx context.Context, cid string) (io.ReadCloser, error)
}

// IPFSConfig points at a Kubo-compatible HTTP API and a public gateway.
type IPFSConfig struct {
	APIURL     string
	GatewayURL string
	AuthToken  string
	Timeout    time.Duration
}

type ipfsClient struct {
	api     *resty.Client
	gateway *resty.Client
}

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

type ipfsError struct {
	Message string `json:"Message"`
}

func NewIPFSClient(cfg IPFSConfig) IPFSClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	api := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIURL, "/")).
		SetTimeout(timeout).
		SetError(&ipfsError{})
	if cfg.AuthToken != "" {
		api.SetAuthToken(cfg.AuthToken)
	}

	gateway := resty.New().
		SetBaseURL(strings.TrimRight(cfg.GatewayURL, "/")).
		SetTimeout(timeout)

	return &ipfsClient{api: api, gateway: gateway}
}

func (c *ipfsClient) PinFile(ctx context.Context, name string, body io.Reader) (string, error) {
	if name == "" {
		name = "file"
	}
	resp, err := c.api.R().
		SetContext(ctx).
		SetQueryParam("pin", "true").
		SetFileReader("file", name, body).
		SetResult(&addResponse{}).
		Post("/api/v0/add")
	if err != nil {
		return "", fmt.Errorf("ipfs add: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("ipfs add: %s", apiMessage(resp))
	}

	added := resp.Result().(*addResponse)
	if added.Hash == "" {
		return "", errors.New("ipfs add: empty hash in response")
	}
	return added.Hash, nil
}

func (c *ipfsClient) UnpinFile(ctx context.Context, cid string) error {
	resp, err := c.api.R().
		SetContext(ctx).
		SetQueryParam("arg", cid).
		Post("/api/v0/pin/rm")
	if err != nil {
		return fmt.Errorf("ipfs pin rm: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("ipfs pin rm %s: %s", cid, apiMessage(resp))
	}
	return nil
}

func (c *ipfsClient) Fetch(ctx context.Context, cid string) (io.ReadCloser, error) {
	if !ValidCID(cid) {
		return nil, fmt.Errorf("invalid content hash %q", cid)
	}
	resp, err := c.gateway.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get("/ipfs/" + cid)
	if err != nil {
		return nil, fmt.Errorf("gateway fetch: %w", err)
	}

	body := resp.RawBody()
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		body.Close()
		return nil, ErrContentNotFound
	case resp.IsError():
		body.Close()
		return nil, fmt.Errorf("gateway fetch %s: status %d", cid, resp.StatusCode())
	}
	return body, nil
}

func apiMessage(resp *resty.Response) string {
	if e, ok := resp.Error().(*ipfsError); ok && e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("status %d", resp.StatusCode())
}
