package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	OrganizationID string `json:"organizationId" validate:"required,objectid"`
	Amount         string `json:"issuanceAmount" validate:"omitempty,wei"`
	TxHash         string `json:"transactionHash" validate:"omitempty,txhash"`
	Role           string `json:"userType" validate:"required,oneof=student organization"`
}

func TestCustomTags(t *testing.T) {
	v := New()

	ok := sample{OrganizationID: "65f1a2b3c4d5e6f708192a3b", Amount: "50000000000000000", TxHash: "0x" + strings.Repeat("a1", 32), Role: "student"}
	assert.NoError(t, v.Struct(ok))

	bad := ok
	bad.OrganizationID = "nope"
	assert.Equal(t, "organizationId must be a valid id", Message(v.Struct(bad)))

	bad = ok
	bad.Amount = "-1"
	assert.Equal(t, "issuanceAmount must be a non-negative integer amount in wei", Message(v.Struct(bad)))

	bad = ok
	bad.TxHash = "0x1234"
	assert.Equal(t, "transactionHash must be a 0x-prefixed 32-byte hash", Message(v.Struct(bad)))

	bad = ok
	bad.Role = "admin"
	assert.Equal(t, "userType must be one of: student, organization", Message(v.Struct(bad)))

	assert.Equal(t, "organizationId is required", Message(v.Struct(sample{Role: "student"})))
}

func TestMessageFallback(t *testing.T) {
	assert.Equal(t, "Invalid request body", Message(errors.New("boom")))
}
