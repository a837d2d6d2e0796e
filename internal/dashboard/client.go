// Package dashboard is the student-side client: a typed API client for the
// portal backend and the certificate request session driven against the chain.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

type Organization struct {
	ID            string `json:"_id"`
	Name          string `json:"name"`
	WalletAddress string `json:"walletAddress"`
}

// Party is the other side of a request. The backend sends either a bare id
// or an expanded object.
type Party struct {
	ID            string `json:"_id"`
	Name          string `json:"name"`
	WalletAddress string `json:"walletAddress"`
	Email         string `json:"email,omitempty"`
}

func (p *Party) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		*p = Party{}
		return json.Unmarshal(data, &p.ID)
	}
	type plain Party
	return json.Unmarshal(data, (*plain)(p))
}

type Request struct {
	ID               string     `json:"_id"`
	Student          Party      `json:"student"`
	Organization     Party      `json:"organization"`
	USN              string     `json:"usn"`
	YearOfGraduation int        `json:"yearOfGraduation"`
	CertificateType  string     `json:"certificateType"`
	Status           string     `json:"status"`
	Remarks          string     `json:"remarks"`
	IssuanceAmount   string     `json:"issuanceAmount"`
	TransactionHash  string     `json:"transactionHash,omitempty"`
	IPFSHash         string     `json:"ipfsHash,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	IssuedAt         *time.Time `json:"issuedAt,omitempty"`
}

type AuthResult struct {
	ID                     string `json:"_id"`
	Name                   string `json:"name"`
	WalletAddress          string `json:"walletAddress"`
	UserType               string `json:"userType"`
	Email                  string `json:"email"`
	IsBlockchainRegistered bool   `json:"isBlockchainRegistered"`
	Token                  string `json:"token"`
}

type RegisterInput struct {
	WalletAddress string `json:"walletAddress"`
	Name          string `json:"name"`
	UserType      string `json:"userType"`
	Password      string `json:"password"`
	Email         string `json:"email"`
}

type CreateRequestInput struct {
	OrganizationID   string `json:"organizationId"`
	USN              string `json:"usn"`
	YearOfGraduation int    `json:"yearOfGraduation"`
	CertificateType  string `json:"certificateType"`
	IssuanceAmount   string `json:"issuanceAmount"`
	TransactionHash  string `json:"transactionHash,omitempty"`
}

type APIClient struct {
	http    *resty.Client
	baseURL string

	mu    sync.RWMutex
	token string
}

// NewAPIClient targets the backend root, e.g. http://localhost:5000.
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	base := strings.TrimRight(baseURL, "/")
	return &APIClient{
		http: resty.New().
			SetBaseURL(base+"/api").
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		baseURL: base,
	}
}

func (c *APIClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *APIClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *APIClient) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/register", in, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

func (c *APIClient) Login(ctx context.Context, walletAddress, password string) (*AuthResult, error) {
	var out AuthResult
	body := map[string]string{"walletAddress": walletAddress, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

func (c *APIClient) Organizations(ctx context.Context) ([]Organization, error) {
	var out []Organization
	if err := c.do(ctx, http.MethodGet, "/users/organizations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) RequestCertificate(ctx context.Context, in CreateRequestInput) (*Request, string, error) {
	var out struct {
		Message string  `json:"message"`
		Request Request `json:"request"`
	}
	if err := c.do(ctx, http.MethodPost, "/users/request-certificate", in, &out); err != nil {
		return nil, "", err
	}
	return &out.Request, out.Message, nil
}

func (c *APIClient) StudentRequests(ctx context.Context) ([]Request, error) {
	var out []Request
	if err := c.do(ctx, http.MethodGet, "/users/student-requests", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) ReceivedCertificates(ctx context.Context) ([]Request, error) {
	var out []Request
	if err := c.do(ctx, http.MethodGet, "/users/received-certificates", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) OrganizationRequests(ctx context.Context) ([]Request, error) {
	var out []Request
	if err := c.do(ctx, http.MethodGet, "/users/organization-requests", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) UpdateStatus(ctx context.Context, id, status, remarks string) (*Request, error) {
	var out struct {
		Request Request `json:"request"`
	}
	body := map[string]string{"status": status, "remarks": remarks}
	if err := c.do(ctx, http.MethodPut, "/users/request/"+id+"/status", body, &out); err != nil {
		return nil, err
	}
	return &out.Request, nil
}

func (c *APIClient) IssueCertificate(ctx context.Context, id string) (*Request, error) {
	var out struct {
		Request Request `json:"request"`
	}
	if err := c.do(ctx, http.MethodPost, "/users/request/"+id+"/issue", nil, &out); err != nil {
		return nil, err
	}
	return &out.Request, nil
}

// ExportOrganizationRequests downloads the caller's requests as csv or xlsx.
func (c *APIClient) ExportOrganizationRequests(ctx context.Context, format string) ([]byte, error) {
	req := c.request(ctx).SetQueryParam("format", format)
	resp, err := req.Get("/users/organization-requests/export")
	if err != nil {
		return nil, fmt.Errorf("GET export: %w", err)
	}
	if err := apiError(resp); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// DownloadURL is the backend link for an issued certificate document.
func (c *APIClient) DownloadURL(ipfsHash string) string {
	return c.baseURL + "/api/ipfs/download/" + ipfsHash
}

func (c *APIClient) request(ctx context.Context) *resty.Request {
	req := c.http.R().
		SetContext(ctx).
		SetError(&APIError{})
	if token := c.Token(); token != "" {
		req.SetAuthToken(token)
	}
	return req
}

func (c *APIClient) do(ctx context.Context, method, path string, body, result interface{}) error {
	req := c.request(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return apiError(resp)
}

// apiError converts a non-2xx response into *APIError.
func apiError(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	apiErr, _ := resp.Error().(*APIError)
	if apiErr == nil {
		apiErr = &APIError{}
	}
	apiErr.StatusCode = resp.StatusCode()
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode())
	}
	return apiErr
}
