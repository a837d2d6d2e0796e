package certificates

import (
	"context"
	"io"

	"cert-chain/credential-portal/credential-portal-backend/pkg/pdf"
)

type PDFService struct {
	generator pdf.Generator
}

func NewPDFService(generator pdf.Generator) *PDFService {
	return &PDFService{
		generator: generator,
	}
}

func (s *PDFService) RenderCertificate(ctx context.Context, cert pdf.Certificate) (io.ReadSeeker, error) {
	return s.generator.Generate(ctx, cert)
}
