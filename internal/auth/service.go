package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"cert-chain/credential-portal/credential-portal-backend/internal/apperr"
	"cert-chain/credential-portal/credential-portal-backend/internal/database"
	"cert-chain/credential-portal/credential-portal-backend/internal/users"
	"cert-chain/credential-portal/credential-portal-backend/internal/validation"
)

type RegisterInput struct {
	WalletAddress string `json:"walletAddress" validate:"required,max=128"`
	Name          string `json:"name" validate:"required,max=200"`
	UserType      string `json:"userType" validate:"required,oneof=student organization"`
	Password      string `json:"password" validate:"required,min=6,max=72"`
	Email         string `json:"email" validate:"required,email"`
}

type LoginInput struct {
	WalletAddress string `json:"walletAddress" validate:"required"`
	Password      string `json:"password" validate:"required"`
}

// Session is a user together with a freshly issued token.
type Session struct {
	User  *users.User
	Token string
}

type Service struct {
	users      users.Repository
	tokens     *TokenManager
	validate   *validator.Validate
	bcryptCost int
	logger     *zap.Logger
}

func NewService(repo users.Repository, tokens *TokenManager, bcryptCost int, logger *zap.Logger) *Service {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:      repo,
		tokens:     tokens,
		validate:   validation.New(),
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperr.Validation(validation.Message(err))
	}

	wallet := users.NormalizeWallet(in.WalletAddress)
	if _, err := s.users.GetByWallet(ctx, wallet); err == nil {
		return nil, apperr.Conflict("User already exists")
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, apperr.Internal("Failed to register user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, apperr.Internal("Failed to register user", err)
	}

	user := &users.User{
		WalletAddress: wallet,
		Name:          in.Name,
		UserType:      users.Role(in.UserType),
		Password:      string(hash),
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, apperr.Conflict("User already exists")
		}
		return nil, apperr.Internal("Failed to register user", err)
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.Hex()),
		zap.String("role", string(user.UserType)))

	return s.session(user)
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperr.Validation(validation.Message(err))
	}

	user, err := s.users.GetByWallet(ctx, in.WalletAddress)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.Unauthorized("Invalid wallet address or password")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to log in", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
		return nil, apperr.Unauthorized("Invalid wallet address or password")
	}
	return s.session(user)
}

func (s *Service) session(user *users.User) (*Session, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperr.Internal("Failed to issue token", err)
	}
	return &Session{User: user, Token: token}, nil
}
