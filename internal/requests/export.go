package requests

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"math/big"
	"time"

	"github.com/xuri/excelize/v2"

	"cert-chain/credential-portal/credential-portal-backend/internal/apperr"
	"cert-chain/credential-portal/credential-portal-backend/internal/users"
	"cert-chain/credential-portal/credential-portal-backend/pkg/chain"
)

type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// Export is a rendered file ready to be sent as an attachment.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

var exportHeader = []string{
	"Request ID", "Student", "Student Wallet", "USN", "Year of Graduation",
	"Certificate Type", "Status", "Remarks", "Issuance Fee", "Transaction Hash",
	"IPFS Hash", "Created At", "Issued At",
}

// ExportOrganizationRequests renders every request addressed to org.
func (s *Service) ExportOrganizationRequests(ctx context.Context, org *users.User, format ExportFormat) (*Export, error) {
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatXLSX {
		return nil, apperr.Validation("Invalid format. Must be 'csv' or 'xlsx'")
	}

	list, err := s.ListOrganizationRequests(ctx, org)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(list))
	for i := range list {
		rows = append(rows, exportRow(&list[i]))
	}

	stamp := s.now().UTC().Format("20060102-150405")
	switch format {
	case FormatXLSX:
		data, err := renderXLSX(rows)
		if err != nil {
			return nil, apperr.Internal("Failed to export requests", err)
		}
		return &Export{
			Filename:    fmt.Sprintf("certificate-requests-%s.xlsx", stamp),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	default:
		data, err := renderCSV(rows)
		if err != nil {
			return nil, apperr.Internal("Failed to export requests", err)
		}
		return &Export{
			Filename:    fmt.Sprintf("certificate-requests-%s.csv", stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	}
}

func exportRow(d *RequestDetails) []string {
	var studentName, studentWallet string
	if d.Student != nil {
		studentName, studentWallet = d.Student.Name, d.Student.WalletAddress
	}
	fee := "0"
	if wei, ok := new(big.Int).SetString(d.IssuanceAmount, 10); ok {
		fee = chain.FormatEther(wei)
	}
	issued := ""
	if d.IssuedAt != nil {
		issued = d.IssuedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		d.ID.Hex(),
		studentName,
		studentWallet,
		d.USN,
		fmt.Sprint(d.YearOfGraduation),
		d.CertificateType,
		string(d.Status),
		d.Remarks,
		fee,
		d.TransactionHash,
		d.IPFSHash,
		d.CreatedAt.UTC().Format(time.RFC3339),
		issued,
	}
}

func renderCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Requests"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	write := func(rowNum int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = v
		}
		return f.SetSheetRow(sheet, cell, &row)
	}

	if err := write(1, exportHeader); err != nil {
		return nil, err
	}
	for i, r := range rows {
		if err := write(i+2, r); err != nil {
			return nil, err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	last, _ := excelize.CoordinatesToCellName(len(exportHeader), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return nil, err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
