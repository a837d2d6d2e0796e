package server

import (
	"context"
	"math/big"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cert-chain/credential-portal/credential-portal-backend/internal/auth"
	"cert-chain/credential-portal/credential-portal-backend/internal/dashboard"
	"cert-chain/credential-portal/credential-portal-backend/internal/memstore"
	"cert-chain/credential-portal/credential-portal-backend/pkg/chain"
)

type staticFees map[string]*big.Int

func (f staticFees) IssuanceFee(ctx context.Context, orgAddress string) (*big.Int, error) {
	fee, ok := f[orgAddress]
	if !ok {
		return nil, chain.ErrOrganizationNotRegistered
	}
	return fee, nil
}

type recordingPayer struct {
	to     string
	amount *big.Int
}

func (p *recordingPayer) Transfer(ctx context.Context, to string, amount *big.Int) (*chain.Receipt, error) {
	p.to, p.amount = to, amount
	return &chain.Receipt{TxHash: "0x" + "ab12cd34ab12cd34ab12cd34ab12cd34ab12cd34ab12cd34ab12cd34ab12cd34", To: to, Amount: amount}, nil
}

func TestDashboardSessionAgainstRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	people := memstore.NewUsers()
	srv := httptest.NewServer(NewRouter(Deps{
		Users:      people,
		Requests:   memstore.NewRequests(people),
		Tokens:     auth.NewTokenManager("test-secret", time.Hour),
		BcryptCost: bcrypt.MinCost,
	}))
	defer srv.Close()

	ctx := context.Background()
	const orgWallet = "0x00000000000000000000000000000000000000aa"

	orgClient := dashboard.NewAPIClient(srv.URL, 5*time.Second)
	org, err := orgClient.Register(ctx, dashboard.RegisterInput{
		WalletAddress: orgWallet, Name: "Test Org", UserType: "organization",
		Password: "orgpassword", Email: "org@example.com",
	})
	require.NoError(t, err)

	studentClient := dashboard.NewAPIClient(srv.URL, 5*time.Second)
	_, err = studentClient.Register(ctx, dashboard.RegisterInput{
		WalletAddress: "0x00000000000000000000000000000000000000cc", Name: "Student", UserType: "student",
		Password: "studentpassword", Email: "student@example.com",
	})
	require.NoError(t, err)

	payer := &recordingPayer{}
	var notices []dashboard.Notice
	session := dashboard.NewSession(dashboard.SessionConfig{
		Backend:  studentClient,
		Fees:     staticFees{orgWallet: big.NewInt(5e16)},
		Payer:    payer,
		Wallet:   "0x00000000000000000000000000000000000000cc",
		Notifier: dashboard.NotifierFunc(func(n dashboard.Notice) { notices = append(notices, n) }),
	})
	require.NoError(t, session.Load(ctx))
	require.Len(t, session.Organizations(), 1)

	require.NoError(t, session.SelectOrganization(ctx, org.ID))
	session.UpdateForm(dashboard.Form{USN: "ORGUSN1", YearOfGraduation: "2025", CertificateType: "TestType"})

	req, err := session.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pending", req.Status)
	assert.Equal(t, "50000000000000000", req.IssuanceAmount)
	assert.Equal(t, orgWallet, payer.to)
	assert.Equal(t, "Certificate request submitted successfully", notices[len(notices)-1].Message)

	mine := session.Requests()
	require.Len(t, mine, 1)
	assert.Equal(t, "Test Org", mine[0].Organization.Name)

	incoming, err := orgClient.OrganizationRequests(ctx)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "ORGUSN1", incoming[0].USN)

	decided, err := orgClient.UpdateStatus(ctx, incoming[0].ID, "accepted", "Approved for testing")
	require.NoError(t, err)
	assert.Equal(t, "accepted", decided.Status)
	assert.Equal(t, "Approved for testing", decided.Remarks)

	_, err = orgClient.UpdateStatus(ctx, incoming[0].ID, "notavalidstatus", "")
	var apiErr *dashboard.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.Regexp(t, `(?i)invalid status`, apiErr.Message)
}
