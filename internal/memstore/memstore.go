// Package memstore holds in-memory implementations of the user and request
// repositories with the same semantics as the Mongo ones.
package memstore

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"cert-chain/credential-portal/credential-portal-backend/internal/database"
	"cert-chain/credential-portal/credential-portal-backend/internal/requests"
	"cert-chain/credential-portal/credential-portal-backend/internal/users"
)

type Users struct {
	mu   sync.RWMutex
	byID map[primitive.ObjectID]users.User
}

func NewUsers() *Users {
	return &Users{byID: map[primitive.ObjectID]users.User{}}
}

var _ users.Repository = (*Users)(nil)

func (s *Users) Create(ctx context.Context, user *users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.byID {
		if u.WalletAddress == user.WalletAddress || (user.Email != "" && u.Email == user.Email) {
			return database.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.byID[user.ID] = *user
	return nil
}

func (s *Users) GetByID(ctx context.Context, id primitive.ObjectID) (*users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &u, nil
}

func (s *Users) GetByWallet(ctx context.Context, wallet string) (*users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wallet = users.NormalizeWallet(wallet)
	for _, u := range s.byID {
		if u.WalletAddress == wallet {
			return &u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *Users) ListByRole(ctx context.Context, role users.Role) ([]users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []users.User{}
	for _, u := range s.byID {
		if u.UserType == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Users) SetBlockchainRegistered(ctx context.Context, id primitive.ObjectID, registered bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return database.ErrNotFound
	}
	u.IsBlockchainRegistered = registered
	u.UpdatedAt = time.Now().UTC()
	s.byID[id] = u
	return nil
}

func (s *Users) summary(id primitive.ObjectID) *users.Summary {
	u, err := s.GetByID(context.Background(), id)
	if err != nil {
		return nil
	}
	sum := u.Summary()
	return &sum
}

// Requests joins against a Users store to expand request details.
type Requests struct {
	mu    sync.RWMutex
	users *Users
	byID  map[primitive.ObjectID]requests.CertificateRequest
}

func NewRequests(people *Users) *Requests {
	return &Requests{users: people, byID: map[primitive.ObjectID]requests.CertificateRequest{}}
}

var _ requests.Repository = (*Requests)(nil)

func (s *Requests) Create(ctx context.Context, req *requests.CertificateRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	req.ID = primitive.NewObjectID()
	req.CreatedAt = now
	req.UpdatedAt = now
	s.byID[req.ID] = *req
	return nil
}

func (s *Requests) GetForOrganization(ctx context.Context, id, orgID primitive.ObjectID) (*requests.CertificateRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.byID[id]
	if !ok || req.Organization != orgID {
		return nil, database.ErrNotFound
	}
	return &req, nil
}

func (s *Requests) GetDetails(ctx context.Context, id primitive.ObjectID) (*requests.RequestDetails, error) {
	list := s.collect(func(r *requests.CertificateRequest) bool { return r.ID == id })
	if len(list) == 0 {
		return nil, database.ErrNotFound
	}
	return &list[0], nil
}

func (s *Requests) ListByOrganization(ctx context.Context, orgID primitive.ObjectID) ([]requests.RequestDetails, error) {
	return s.collect(func(r *requests.CertificateRequest) bool { return r.Organization == orgID }), nil
}

func (s *Requests) ListByStudent(ctx context.Context, studentID primitive.ObjectID, status requests.Status) ([]requests.RequestDetails, error) {
	return s.collect(func(r *requests.CertificateRequest) bool {
		return r.Student == studentID && (status == "" || r.Status == status)
	}), nil
}

func (s *Requests) UpdateDecision(ctx context.Context, id, orgID primitive.ObjectID, status requests.Status, remarks string) error {
	return s.update(id, orgID, func(r *requests.CertificateRequest) bool {
		if r.Status == requests.StatusIssued {
			return false
		}
		r.Status = status
		r.Remarks = remarks
		return true
	})
}

func (s *Requests) MarkIssued(ctx context.Context, id, orgID primitive.ObjectID, ipfsHash string, issuedAt time.Time) error {
	return s.update(id, orgID, func(r *requests.CertificateRequest) bool {
		if r.Status != requests.StatusAccepted {
			return false
		}
		at := issuedAt.UTC()
		r.Status = requests.StatusIssued
		r.IPFSHash = ipfsHash
		r.IssuedAt = &at
		return true
	})
}

func (s *Requests) update(id, orgID primitive.ObjectID, apply func(*requests.CertificateRequest) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.byID[id]
	if !ok || req.Organization != orgID || !apply(&req) {
		return database.ErrNotFound
	}
	req.UpdatedAt = time.Now().UTC()
	s.byID[id] = req
	return nil
}

func (s *Requests) collect(match func(*requests.CertificateRequest) bool) []requests.RequestDetails {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []requests.RequestDetails{}
	for _, r := range s.byID {
		if !match(&r) {
			continue
		}
		out = append(out, requests.RequestDetails{
			CertificateRequest: r,
			Student:            s.users.summary(r.Student),
			Organization:       s.users.summary(r.Organization),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) > 0
	})
	return out
}
