package users

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"cert-chain/credential-portal/credential-portal-backend/internal/apperr"
	"cert-chain/credential-portal/credential-portal-backend/internal/database"
	"cert-chain/credential-portal/credential-portal-backend/pkg/chain"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) GetByWallet(ctx context.Context, wallet string) (*User, error) {
	args := m.Called(ctx, wallet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) ListByRole(ctx context.Context, role Role) ([]User, error) {
	args := m.Called(ctx, role)
	return args.Get(0).([]User), args.Error(1)
}

func (m *MockRepository) SetBlockchainRegistered(ctx context.Context, id primitive.ObjectID, registered bool) error {
	args := m.Called(ctx, id, registered)
	return args.Error(0)
}

type fakeRegistry map[string]*chain.OrganizationRecord

func (f fakeRegistry) Organization(ctx context.Context, address string) (*chain.OrganizationRecord, error) {
	rec, ok := f[address]
	if !ok {
		return nil, errors.New("rpc unavailable")
	}
	return rec, nil
}

func TestListOrganizationsHidesEmail(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, zap.NewNop())
	ctx := context.Background()

	repo.On("ListByRole", ctx, RoleOrganization).Return([]User{
		{ID: primitive.NewObjectID(), Name: "Acme", WalletAddress: "0xacme", Email: "a@acme.io", UserType: RoleOrganization},
	}, nil)

	orgs, err := service.ListOrganizations(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "Acme", orgs[0].Name)
	assert.Empty(t, orgs[0].Email)
}

func TestResolveOrganization(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, zap.NewNop())
	ctx := context.Background()

	org := &User{ID: primitive.NewObjectID(), UserType: RoleOrganization}
	student := &User{ID: primitive.NewObjectID(), UserType: RoleStudent}
	missing := primitive.NewObjectID()
	repo.On("GetByID", ctx, org.ID).Return(org, nil)
	repo.On("GetByID", ctx, student.ID).Return(student, nil)
	repo.On("GetByID", ctx, missing).Return(nil, database.ErrNotFound)

	got, err := service.ResolveOrganization(ctx, org.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, org.ID, got.ID)

	for _, id := range []string{student.ID.Hex(), missing.Hex(), "xyz"} {
		_, err := service.ResolveOrganization(ctx, id)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation), id)
	}
}

func TestSyncRegistration(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, zap.NewNop())
	ctx := context.Background()

	newlyRegistered := User{ID: primitive.NewObjectID(), WalletAddress: "0xa"}
	unchanged := User{ID: primitive.NewObjectID(), WalletAddress: "0xb", IsBlockchainRegistered: true}
	deregistered := User{ID: primitive.NewObjectID(), WalletAddress: "0xc", IsBlockchainRegistered: true}
	unreachable := User{ID: primitive.NewObjectID(), WalletAddress: "0xd"}

	repo.On("ListByRole", ctx, RoleOrganization).Return([]User{newlyRegistered, unchanged, deregistered, unreachable}, nil)
	repo.On("SetBlockchainRegistered", ctx, newlyRegistered.ID, true).Return(nil)
	repo.On("SetBlockchainRegistered", ctx, deregistered.ID, false).Return(nil)

	registry := fakeRegistry{
		"0xa": {Name: "A", IsRegistered: true, IssuanceFee: big.NewInt(1)},
		"0xb": {Name: "B", IsRegistered: true},
		"0xc": {Name: "C", IsRegistered: false},
	}

	changed, err := service.SyncRegistration(ctx, registry)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)
	repo.AssertExpectations(t)
	repo.AssertNumberOfCalls(t, "SetBlockchainRegistered", 2)
}
