package requests

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"cert-chain/credential-portal/credential-portal-backend/internal/apperr"
	"cert-chain/credential-portal/credential-portal-backend/internal/certificates"
	"cert-chain/credential-portal/credential-portal-backend/internal/database"
	"cert-chain/credential-portal/credential-portal-backend/internal/users"
	"cert-chain/credential-portal/credential-portal-backend/internal/validation"
	"cert-chain/credential-portal/credential-portal-backend/pkg/chain"
	"cert-chain/credential-portal/credential-portal-backend/pkg/pdf"
	"cert-chain/credential-portal/credential-portal-backend/pkg/workflows"
)

const invalidStatusMessage = "Invalid status. Must be 'accepted' or 'rejected'"

// OrganizationResolver turns a client-supplied id into an organization user.
type OrganizationResolver interface {
	ResolveOrganization(ctx context.Context, id string) (*users.User, error)
}

// Publisher renders and stores an issued certificate. Retract removes a
// published certificate that was never recorded against its request.
type Publisher interface {
	Publish(ctx context.Context, cert pdf.Certificate) (*certificates.Published, error)
	Retract(ctx context.Context, published *certificates.Published) error
}

type Service struct {
	repo      Repository
	orgs      OrganizationResolver
	people    users.Repository
	publisher Publisher
	payments  chain.PaymentVerifier
	workflow  *workflows.StateMachine
	validate  *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires the workflow. publisher and payments may be nil: without a
// publisher issuance is unavailable, without payments client amounts are trusted.
func NewService(repo Repository, orgs OrganizationResolver, people users.Repository, publisher Publisher, payments chain.PaymentVerifier, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		orgs:      orgs,
		people:    people,
		publisher: publisher,
		payments:  payments,
		workflow:  workflows.NewStateMachine(),
		validate:  validation.New(),
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) CreateRequest(ctx context.Context, student *users.User, in CreateInput) (*RequestDetails, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperr.Validation(validation.Message(err))
	}

	org, err := s.orgs.ResolveOrganization(ctx, in.OrganizationID)
	if err != nil {
		return nil, err
	}

	amount, err := chain.ParseWei(string(in.IssuanceAmount))
	if err != nil {
		return nil, apperr.Validation("issuanceAmount must be a non-negative integer amount in wei")
	}

	if s.payments != nil && amount.Sign() > 0 {
		if in.TransactionHash == "" {
			return nil, apperr.Validation("transactionHash is required when an issuance fee is paid")
		}
		_, err := s.payments.VerifyPayment(ctx, chain.Payment{
			TxHash:    in.TransactionHash,
			From:      student.WalletAddress,
			To:        org.WalletAddress,
			MinAmount: amount,
		})
		switch {
		case errors.Is(err, chain.ErrPaymentMismatch),
			errors.Is(err, chain.ErrTransactionFailed),
			errors.Is(err, chain.ErrTransactionPending):
			return nil, apperr.Validation("Payment could not be verified: " + err.Error())
		case err != nil:
			return nil, apperr.External("Failed to verify payment", err)
		}
	}

	req := &CertificateRequest{
		Student:          student.ID,
		Organization:     org.ID,
		USN:              in.USN,
		YearOfGraduation: in.YearOfGraduation,
		CertificateType:  in.CertificateType,
		Status:           StatusPending,
		IssuanceAmount:   amount.String(),
		TransactionHash:  in.TransactionHash,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, apperr.Internal("Failed to submit request", err)
	}

	s.logger.Info("Certificate request created",
		zap.String("request_id", req.ID.Hex()),
		zap.String("student_id", student.ID.Hex()),
		zap.String("organization_id", org.ID.Hex()),
		zap.String("issuance_amount", req.IssuanceAmount))
	return s.details(ctx, req.ID)
}

func (s *Service) ListOrganizationRequests(ctx context.Context, org *users.User) ([]RequestDetails, error) {
	list, err := s.repo.ListByOrganization(ctx, org.ID)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch requests", err)
	}
	return list, nil
}

func (s *Service) ListStudentRequests(ctx context.Context, student *users.User) ([]RequestDetails, error) {
	list, err := s.repo.ListByStudent(ctx, student.ID, "")
	if err != nil {
		return nil, apperr.Internal("Failed to fetch requests", err)
	}
	return list, nil
}

// ListReceivedCertificates returns the caller's issued requests.
func (s *Service) ListReceivedCertificates(ctx context.Context, student *users.User) ([]RequestDetails, error) {
	list, err := s.repo.ListByStudent(ctx, student.ID, StatusIssued)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch certificates", err)
	}
	return list, nil
}

// UpdateRequestStatus records an organization decision. Requests the caller
// does not own are reported as not found.
func (s *Service) UpdateRequestStatus(ctx context.Context, org *users.User, id string, in StatusInput) (*RequestDetails, error) {
	req, err := s.ownedRequest(ctx, org, id)
	if err != nil {
		return nil, err
	}

	status := Status(in.Status)
	if !workflows.IsDecision(string(status)) {
		return nil, apperr.Validation(invalidStatusMessage)
	}
	if s.workflow.IsTerminal(string(req.Status)) {
		return nil, apperr.Conflict("Request already issued")
	}
	if err := s.workflow.Decide(string(req.Status), string(status)); err != nil {
		return nil, apperr.Conflict(err.Error())
	}

	err = s.repo.UpdateDecision(ctx, req.ID, org.ID, status, in.Remarks)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.Conflict("Request already issued")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to update request", err)
	}

	s.logger.Info("Certificate request decided",
		zap.String("request_id", req.ID.Hex()),
		zap.String("from", string(req.Status)),
		zap.String("to", string(status)))

	return s.details(ctx, req.ID)
}

// IssueCertificate renders, stores and records the certificate for an accepted request.
func (s *Service) IssueCertificate(ctx context.Context, org *users.User, id string) (*RequestDetails, error) {
	req, err := s.ownedRequest(ctx, org, id)
	if err != nil {
		return nil, err
	}
	if s.workflow.IsTerminal(string(req.Status)) {
		return nil, apperr.Conflict("Request already issued")
	}
	if !s.workflow.CanTransition(string(req.Status), string(StatusIssued)) {
		return nil, apperr.Conflict("Only accepted requests can be issued")
	}
	if s.publisher == nil {
		return nil, apperr.External("Certificate issuance is not configured", nil)
	}

	student, err := s.people.GetByID(ctx, req.Student)
	if err != nil {
		return nil, apperr.Internal("Failed to load student", err)
	}

	issuedAt := s.now().UTC()
	published, err := s.publisher.Publish(ctx, pdf.Certificate{
		SerialNumber:       req.ID.Hex(),
		StudentName:        student.Name,
		StudentWallet:      student.WalletAddress,
		OrganizationName:   org.Name,
		OrganizationWallet: org.WalletAddress,
		USN:                req.USN,
		YearOfGraduation:   req.YearOfGraduation,
		CertificateType:    req.CertificateType,
		Remarks:            req.Remarks,
		IssuedAt:           issuedAt,
	})
	if err != nil {
		return nil, apperr.External("Failed to publish certificate", err)
	}

	err = s.repo.MarkIssued(ctx, req.ID, org.ID, published.CID, issuedAt)
	if errors.Is(err, database.ErrNotFound) {
		s.logger.Warn("Request changed during issuance; retracting certificate",
			zap.String("request_id", req.ID.Hex()), zap.String("cid", published.CID))
		if rerr := s.publisher.Retract(ctx, published); rerr != nil {
			s.logger.Error("Failed to retract certificate",
				zap.String("request_id", req.ID.Hex()), zap.String("cid", published.CID), zap.Error(rerr))
		}
		return nil, apperr.Conflict("Request is no longer awaiting issuance")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to record issuance", err)
	}

	s.logger.Info("Certificate issued",
		zap.String("request_id", req.ID.Hex()),
		zap.String("cid", published.CID),
		zap.String("s3_key", published.S3Key))

	return s.details(ctx, req.ID)
}

func (s *Service) ownedRequest(ctx context.Context, org *users.User, id string) (*CertificateRequest, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound("Request not found")
	}
	req, err := s.repo.GetForOrganization(ctx, oid, org.ID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.NotFound("Request not found")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load request", err)
	}
	return req, nil
}

func (s *Service) details(ctx context.Context, id primitive.ObjectID) (*RequestDetails, error) {
	d, err := s.repo.GetDetails(ctx, id)
	if err != nil {
		return nil, apperr.Internal("Failed to load request", err)
	}
	return d, nil
}
