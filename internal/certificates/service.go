// Package certificates renders issued certificates and moves them in and out of content storage.
package certificates

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"cert-chain/credential-portal/credential-portal-backend/internal/apperr"
	"cert-chain/credential-portal/credential-portal-backend/pkg/pdf"
	"cert-chain/credential-portal/credential-portal-backend/pkg/storage"
)

// Published records where an issued certificate was stored.
type Published struct {
	CID   string
	S3Key string
	Size  int64
}

type Service interface {
	Publish(ctx context.Context, cert pdf.Certificate) (*Published, error)
	Retract(ctx context.Context, published *Published) error
	Download(ctx context.Context, cid string) (io.ReadCloser, error)
}

type certificateService struct {
	storage *StorageProvider
	pdf     *PDFService
	logger  *zap.Logger
}

func NewService(storage *StorageProvider, pdf *PDFService, logger *zap.Logger) Service {
	return &certificateService{
		storage: storage,
		pdf:     pdf,
		logger:  logger,
	}
}

// Publish renders the certificate, pins it and archives a copy when S3 is configured.
// A failed archive copy is logged and does not fail the publish.
func (s *certificateService) Publish(ctx context.Context, cert pdf.Certificate) (*Published, error) {
	doc, err := s.pdf.RenderCertificate(ctx, cert)
	if err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	size, err := doc.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("measure certificate: %w", err)
	}
	if _, err := doc.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind certificate: %w", err)
	}

	name := fmt.Sprintf("certificate-%s.pdf", cert.SerialNumber)
	cid, err := s.storage.PinToIPFS(ctx, name, doc)
	if err != nil {
		return nil, fmt.Errorf("pin certificate: %w", err)
	}
	out := &Published{CID: cid, Size: size}

	if s.storage.ArchiveEnabled() {
		key := s.storage.GenerateS3Key(cert.OrganizationWallet, cert.SerialNumber)
		if _, err := doc.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind certificate: %w", err)
		}
		if err := s.storage.UploadToS3(ctx, key, doc); err != nil {
			s.logger.Warn("Failed to archive certificate",
				zap.String("cid", cid), zap.String("s3_key", key), zap.Error(err))
		} else {
			out.S3Key = key
		}
	}
	return out, nil
}

// Retract unpins a published certificate and drops its archive copy.
func (s *certificateService) Retract(ctx context.Context, published *Published) error {
	if err := s.storage.UnpinFromIPFS(ctx, published.CID); err != nil {
		return fmt.Errorf("unpin certificate: %w", err)
	}
	if published.S3Key != "" && s.storage.ArchiveEnabled() {
		if err := s.storage.DeleteFromS3(ctx, published.S3Key); err != nil {
			return fmt.Errorf("delete archived certificate: %w", err)
		}
	}
	s.logger.Info("Certificate retracted",
		zap.String("cid", published.CID), zap.String("s3_key", published.S3Key))
	return nil
}

func (s *certificateService) Download(ctx context.Context, cid string) (io.ReadCloser, error) {
	if !storage.ValidCID(cid) {
		return nil, apperr.Validation("Invalid content hash")
	}
	body, err := s.storage.FetchFromIPFS(ctx, cid)
	if errors.Is(err, storage.ErrContentNotFound) {
		return nil, apperr.NotFound("Certificate not found")
	}
	if err != nil {
		return nil, apperr.External("Failed to fetch certificate from IPFS", err)
	}
	return body, nil
}
