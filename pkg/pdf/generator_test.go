package pdf

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCertificate(t *testing.T) {
	gen := NewGenerator("Org Test Org")

	r, err := gen.Generate(context.Background(), Certificate{
		SerialNumber:       "5f0c7d2e-0000-4000-8000-000000000001",
		StudentName:        "Student Test",
		StudentWallet:      "0xstudent",
		OrganizationName:   "Org Test Org",
		OrganizationWallet: "0xorgtestorg",
		USN:                "ORGUSN1",
		YearOfGraduation:   2025,
		CertificateType:    "TestType",
		Remarks:            "Approved for testing",
		IssuedAt:           time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(data[:5]))
	assert.Greater(t, len(data), 500)
}

func TestGenerateHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGenerator("x").Generate(ctx, Certificate{})
	assert.ErrorIs(t, err, context.Canceled)
}
