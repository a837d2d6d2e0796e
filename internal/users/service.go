package users

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"cert-chain/credential-portal/credential-portal-backend/internal/apperr"
	"cert-chain/credential-portal/credential-portal-backend/internal/database"
	"cert-chain/credential-portal/credential-portal-backend/pkg/chain"
)

type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ListOrganizations returns every organization, sorted by name.
func (s *Service) ListOrganizations(ctx context.Context) ([]Summary, error) {
	orgs, err := s.repo.ListByRole(ctx, RoleOrganization)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch organizations", err)
	}
	out := make([]Summary, 0, len(orgs))
	for i := range orgs {
		sum := orgs[i].Summary()
		sum.Email = ""
		out = append(out, sum)
	}
	return out, nil
}

// ResolveOrganization parses id and loads the user, requiring the organization role.
func (s *Service) ResolveOrganization(ctx context.Context, id string) (*User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Validation("Invalid organization selected")
	}
	org, err := s.repo.GetByID(ctx, oid)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.Validation("Invalid organization selected")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load organization", err)
	}
	if org.UserType != RoleOrganization {
		return nil, apperr.Validation("Invalid organization selected")
	}
	return org, nil
}

// SyncRegistration refreshes isBlockchainRegistered for every organization from the
// on-chain registry and returns how many records changed.
func (s *Service) SyncRegistration(ctx context.Context, registry chain.RegistryReader) (int, error) {
	orgs, err := s.repo.ListByRole(ctx, RoleOrganization)
	if err != nil {
		return 0, fmt.Errorf("list organizations: %w", err)
	}

	changed := 0
	for _, org := range orgs {
		if ctx.Err() != nil {
			return changed, ctx.Err()
		}
		record, err := registry.Organization(ctx, org.WalletAddress)
		if err != nil {
			s.logger.Warn("Failed to read organization from registry",
				zap.String("wallet", org.WalletAddress), zap.Error(err))
			continue
		}
		if record.IsRegistered == org.IsBlockchainRegistered {
			continue
		}
		if err := s.repo.SetBlockchainRegistered(ctx, org.ID, record.IsRegistered); err != nil {
			s.logger.Error("Failed to update registration flag",
				zap.String("user_id", org.ID.Hex()), zap.Error(err))
			continue
		}
		changed++
	}
	return changed, nil
}
