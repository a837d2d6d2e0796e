package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Certificate is everything printed on an issued certificate.
type Certificate struct {
	SerialNumber       string
	StudentName        string
	StudentWallet      string
	OrganizationName   string
	OrganizationWallet string
	USN                string
	YearOfGraduation   int
	CertificateType    string
	Remarks            string
	IssuedAt           time.Time
}

type Generator interface {
	Generate(ctx context.Context, cert Certificate) (io.ReadSeeker, error)
}

type gofpdfGenerator struct {
	author string
}

// NewGenerator returns a gofpdf-backed generator. author is written into the document metadata.
func NewGenerator(author string) Generator {
	return &gofpdfGenerator{author: author}
}

func (g *gofpdfGenerator) Generate(ctx context.Context, cert Certificate) (io.ReadSeeker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := gofpdf.New("L", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle(cert.CertificateType+" certificate", true)
	doc.SetAuthor(g.author, true)
	doc.SetCreationDate(cert.IssuedAt)
	doc.SetMargins(20, 20, 20)
	doc.AddPage()

	w, h := doc.GetPageSize()
	doc.SetLineWidth(1.2)
	doc.Rect(10, 10, w-20, h-20, "D")
	doc.SetLineWidth(0.3)
	doc.Rect(14, 14, w-28, h-28, "D")

	doc.SetY(32)
	doc.SetFont("Helvetica", "B", 30)
	doc.CellFormat(0, 14, tr("Certificate of "+cert.CertificateType), "", 1, "C", false, 0, "")

	doc.Ln(6)
	doc.SetFont("Helvetica", "", 14)
	doc.CellFormat(0, 8, "This is to certify that", "", 1, "C", false, 0, "")

	doc.SetFont("Helvetica", "B", 22)
	doc.CellFormat(0, 14, tr(cert.StudentName), "", 1, "C", false, 0, "")

	doc.SetFont("Helvetica", "", 13)
	doc.CellFormat(0, 8, tr(fmt.Sprintf("USN %s, class of %d", cert.USN, cert.YearOfGraduation)), "", 1, "C", false, 0, "")
	doc.CellFormat(0, 8, "has been awarded this certificate by", "", 1, "C", false, 0, "")

	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 12, tr(cert.OrganizationName), "", 1, "C", false, 0, "")

	if cert.Remarks != "" {
		doc.Ln(2)
		doc.SetFont("Helvetica", "I", 12)
		doc.MultiCell(0, 6, tr(cert.Remarks), "", "C", false)
	}

	doc.SetY(h - 48)
	doc.SetFont("Courier", "", 9)
	rows := [][2]string{
		{"Serial", cert.SerialNumber},
		{"Issued", cert.IssuedAt.UTC().Format(time.RFC1123)},
		{"Student wallet", cert.StudentWallet},
		{"Issuer wallet", cert.OrganizationWallet},
		{"Year", strconv.Itoa(cert.YearOfGraduation)},
	}
	for _, row := range rows {
		doc.CellFormat(45, 5, row[0]+":", "", 0, "R", false, 0, "")
		doc.CellFormat(0, 5, " "+row[1], "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render certificate: %w", err)
	}
	return bytes.NewReader(buf.Bytes()), nil
}
