package requests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"cert-chain/credential-portal/credential-portal-backend/internal/users"
	"cert-chain/credential-portal/credential-portal-backend/pkg/workflows"
)

type Status string

const (
	StatusPending  Status = workflows.StatusPending
	StatusAccepted Status = workflows.StatusAccepted
	StatusRejected Status = workflows.StatusRejected
	StatusIssued   Status = workflows.StatusIssued
)

// CertificateRequest is one student's request for one credential from one organization.
type CertificateRequest struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Student          primitive.ObjectID `bson:"student" json:"student"`
	Organization     primitive.ObjectID `bson:"organization" json:"organization"`
	USN              string             `bson:"usn" json:"usn"`
	YearOfGraduation int                `bson:"yearOfGraduation" json:"yearOfGraduation"`
	CertificateType  string             `bson:"certificateType" json:"certificateType"`
	Status           Status             `bson:"status" json:"status"`
	Remarks          string             `bson:"remarks" json:"remarks"`
	IssuanceAmount   string             `bson:"issuanceAmount" json:"issuanceAmount"` // wei, base 10
	TransactionHash  string             `bson:"transactionHash,omitempty" json:"transactionHash,omitempty"`
	IPFSHash         string             `bson:"ipfsHash,omitempty" json:"ipfsHash,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	IssuedAt         *time.Time         `bson:"issuedAt,omitempty" json:"issuedAt,omitempty"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// RequestDetails is a request with both parties expanded for display. The
// outer Student and Organization fields replace the raw ids in JSON.
type RequestDetails struct {
	CertificateRequest
	Student      *users.Summary `json:"student,omitempty"`
	Organization *users.Summary `json:"organization,omitempty"`
}

// WeiAmount accepts a JSON string or bare integer and keeps its decimal text.
type WeiAmount string

func (a *WeiAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = WeiAmount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("issuanceAmount must be a string or integer")
	}
	*a = WeiAmount(n.String())
	return nil
}

type CreateInput struct {
	OrganizationID   string    `json:"organizationId" validate:"required,objectid"`
	USN              string    `json:"usn" validate:"required,max=64"`
	YearOfGraduation int       `json:"yearOfGraduation" validate:"required,gte=1900,lte=2200"`
	CertificateType  string    `json:"certificateType" validate:"required,max=100"`
	IssuanceAmount   WeiAmount `json:"issuanceAmount" validate:"omitempty,wei"`
	TransactionHash  string    `json:"transactionHash" validate:"omitempty,txhash"`
}

type StatusInput struct {
	Status  string `json:"status"`
	Remarks string `json:"remarks"`
}
