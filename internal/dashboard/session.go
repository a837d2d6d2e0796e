package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"cert-chain/credential-portal/credential-portal-backend/pkg/chain"
)

var (
	ErrSubmissionInProgress = errors.New("a submission is already in progress")
	ErrUnknownOrganization  = errors.New("unknown organization")
	ErrNoOrganization       = errors.New("no organization selected")
	ErrWalletNotReady       = errors.New("wallet not connected")
	ErrContractNotLoaded    = errors.New("registry contract not loaded")
	ErrSelectionChanged     = errors.New("organization selection changed during submission")
)

// Phase is the single state value of a submission attempt.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseFeeLookup
	PhaseAwaitingPayment
	PhaseSubmitting
	PhaseSuccess
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseFeeLookup:
		return "fee_lookup"
	case PhaseAwaitingPayment:
		return "awaiting_payment"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSuccess:
		return "success"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient user-facing message.
type Notice struct {
	Level   NoticeLevel
	Message string
}

type Notifier interface {
	Notify(Notice)
}

type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Backend is the part of the portal API a student session uses.
type Backend interface {
	Organizations(ctx context.Context) ([]Organization, error)
	RequestCertificate(ctx context.Context, in CreateRequestInput) (*Request, string, error)
	StudentRequests(ctx context.Context) ([]Request, error)
	ReceivedCertificates(ctx context.Context) ([]Request, error)
}

type SessionConfig struct {
	Backend Backend
	// Fees and Payer are nil until the wallet is connected to the registry.
	Fees  chain.FeeReader
	Payer chain.Transferer
	// Wallet is the connected student wallet address.
	Wallet   string
	Notifier Notifier
	Currency string
	Network  string
	Now      func() time.Time
	Logger   *zap.Logger
}

// feeLookup is one fee resolution for one selection. Its result fields are
// written once, before done is closed.
type feeLookup struct {
	gen    uint64
	org    Organization
	cancel context.CancelFunc
	done   chan struct{}
	fee    *big.Int
	err    error
}

// Session drives the student's certificate request flow.
type Session struct {
	backend  Backend
	fees     chain.FeeReader
	payer    chain.Transferer
	wallet   string
	notifier Notifier
	currency string
	network  string
	forms    *formValidator
	logger   *zap.Logger

	mu           sync.Mutex
	phase        Phase
	submitting   bool
	form         Form
	orgs         []Organization
	selected     *Organization
	gen          uint64
	lookup       *feeLookup
	requests     Requests
	certificates Requests
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NotifierFunc(func(Notice) {})
	}
	if cfg.Currency == "" {
		cfg.Currency = "CELO"
	}
	if cfg.Network == "" {
		cfg.Network = "Alfajores"
	}
	return &Session{
		backend:  cfg.Backend,
		fees:     cfg.Fees,
		payer:    cfg.Payer,
		wallet:   cfg.Wallet,
		notifier: cfg.Notifier,
		currency: cfg.Currency,
		network:  cfg.Network,
		forms:    newFormValidator(cfg.Now),
		logger:   cfg.Logger,
	}
}

// Load fetches the organization list and both request views.
func (s *Session) Load(ctx context.Context) error {
	orgs, err := s.backend.Organizations(ctx)
	if err != nil {
		s.notify(NoticeError, "Failed to load organizations: "+messageOf(err))
		return err
	}
	s.mu.Lock()
	s.orgs = orgs
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Refresh reloads "my requests" and "received certificates".
func (s *Session) Refresh(ctx context.Context) error {
	reqs, reqErr := s.backend.StudentRequests(ctx)
	if reqErr != nil {
		s.logger.Warn("Failed to refresh student requests", zap.Error(reqErr))
	}
	certs, certErr := s.backend.ReceivedCertificates(ctx)
	if certErr != nil {
		s.logger.Warn("Failed to refresh received certificates", zap.Error(certErr))
	}

	s.mu.Lock()
	if reqErr == nil {
		s.requests = reqs
	}
	if certErr == nil {
		s.certificates = certs
	}
	s.mu.Unlock()
	return errors.Join(reqErr, certErr)
}

func (s *Session) Organizations() []Organization {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Organization(nil), s.orgs...)
}

func (s *Session) Requests() Requests {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(Requests(nil), s.requests...)
}

func (s *Session) Certificates() Requests {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(Requests(nil), s.certificates...)
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) UpdateForm(f Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = f
}

func (s *Session) Form() Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// Selected returns the currently selected organization.
func (s *Session) Selected() (Organization, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return Organization{}, false
	}
	return *s.selected, true
}

// SelectOrganization makes orgID the current selection and starts resolving
// its issuance fee. Any lookup for a previous selection is cancelled and its
// result is never used. An empty id clears the selection.
func (s *Session) SelectOrganization(ctx context.Context, orgID string) error {
	s.mu.Lock()
	s.gen++
	s.dropLookupLocked()
	s.selected = nil

	if orgID == "" {
		s.mu.Unlock()
		return nil
	}

	var org *Organization
	for i := range s.orgs {
		if s.orgs[i].ID == orgID {
			o := s.orgs[i]
			org = &o
			break
		}
	}
	if org == nil {
		s.mu.Unlock()
		s.notify(NoticeError, "Selected organization not found.")
		return ErrUnknownOrganization
	}
	s.selected = org

	if s.fees == nil {
		s.mu.Unlock()
		return nil
	}
	lctx, cancel := context.WithCancel(ctx)
	l := &feeLookup{gen: s.gen, org: *org, cancel: cancel, done: make(chan struct{})}
	s.lookup = l
	s.mu.Unlock()

	go s.runLookup(lctx, l)
	return nil
}

func (s *Session) runLookup(ctx context.Context, l *feeLookup) {
	defer l.cancel()
	l.fee, l.err = s.fees.IssuanceFee(ctx, l.org.WalletAddress)
	close(l.done)

	s.mu.Lock()
	stale := s.gen != l.gen
	s.mu.Unlock()
	if stale {
		s.logger.Debug("Discarding fee lookup for previous selection",
			zap.String("organization", l.org.ID), zap.Uint64("generation", l.gen))
		return
	}
	if l.err != nil {
		s.logger.Warn("Fee lookup failed",
			zap.String("organization", l.org.ID), zap.Error(l.err))
	}
}

// dropLookupLocked cancels the in-flight lookup. Callers hold s.mu.
func (s *Session) dropLookupLocked() {
	if s.lookup != nil {
		s.lookup.cancel()
		s.lookup = nil
	}
}

// Fee returns the resolved fee for the current selection, if it is ready.
func (s *Session) Fee() (*big.Int, bool) {
	s.mu.Lock()
	l := s.lookup
	s.mu.Unlock()
	if l == nil {
		return nil, false
	}
	select {
	case <-l.done:
		if l.err != nil {
			return nil, false
		}
		return new(big.Int).Set(l.fee), true
	default:
		return nil, false
	}
}

// WaitForFee blocks until the current selection's fee is resolved.
func (s *Session) WaitForFee(ctx context.Context) (*big.Int, error) {
	s.mu.Lock()
	l := s.lookup
	s.mu.Unlock()
	if l == nil {
		return nil, ErrNoOrganization
	}
	return s.awaitLookup(ctx, l)
}

func (s *Session) awaitLookup(ctx context.Context, l *feeLookup) (*big.Int, error) {
	select {
	case <-l.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.Lock()
	current := s.gen == l.gen
	s.mu.Unlock()
	if !current {
		return nil, ErrSelectionChanged
	}
	if l.err != nil {
		return nil, l.err
	}
	return new(big.Int).Set(l.fee), nil
}

// Submit runs one submission attempt for the current form and selection:
// local checks, fee resolution, payment when the fee is nonzero, then the
// backend request. Only one attempt runs at a time.
func (s *Session) Submit(ctx context.Context) (*Request, error) {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}
	s.submitting = true
	s.phase = PhaseValidating
	form := s.form
	selected := s.selected
	lookup := s.lookup
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
	}()

	if err := s.forms.Check(form); err != nil {
		s.notify(NoticeError, err.Error())
		s.setPhase(PhaseIdle)
		return nil, err
	}
	if selected == nil {
		s.notify(NoticeError, "Please select an organization.")
		s.setPhase(PhaseIdle)
		return nil, ErrNoOrganization
	}
	if s.wallet == "" || s.payer == nil {
		s.notify(NoticeError, "Please connect your wallet and ensure it is ready.")
		s.setPhase(PhaseFailed)
		return nil, ErrWalletNotReady
	}
	if s.fees == nil || lookup == nil {
		s.notify(NoticeError, fmt.Sprintf("Blockchain contract not loaded. Ensure wallet is connected and on %s.", s.network))
		s.setPhase(PhaseFailed)
		return nil, ErrContractNotLoaded
	}

	s.setPhase(PhaseFeeLookup)
	fee, err := s.awaitLookup(ctx, lookup)
	if err != nil {
		switch {
		case errors.Is(err, chain.ErrOrganizationNotRegistered):
			s.notify(NoticeError, "Selected organization not found on blockchain or not registered.")
		case errors.Is(err, ErrSelectionChanged):
			s.notify(NoticeError, "Organization selection changed. Please review the fee and submit again.")
		default:
			s.notify(NoticeError, "Failed to fetch fee: "+err.Error())
		}
		s.setPhase(PhaseFailed)
		return nil, err
	}

	var txHash string
	if fee.Sign() > 0 {
		s.setPhase(PhaseAwaitingPayment)
		amount := chain.FormatEther(fee)
		s.notify(NoticeInfo, fmt.Sprintf("Initiating payment of %s %s to %s...", amount, s.currency, selected.Name))

		receipt, err := s.payer.Transfer(ctx, selected.WalletAddress, fee)
		if err != nil {
			s.notify(NoticeError, fmt.Sprintf("Payment failed: %s. Request not submitted.", err))
			s.setPhase(PhaseFailed)
			return nil, fmt.Errorf("payment: %w", err)
		}
		txHash = receipt.TxHash
		s.notify(NoticeSuccess, fmt.Sprintf("Payment of %s %s successful! Transaction Hash: %s", amount, s.currency, txHash))
	} else {
		s.notify(NoticeInfo, "No issuance fee required. Proceeding with request submission.")
	}

	s.setPhase(PhaseSubmitting)
	req, msg, err := s.backend.RequestCertificate(ctx, CreateRequestInput{
		OrganizationID:   selected.ID,
		USN:              form.USN,
		YearOfGraduation: form.year(),
		CertificateType:  form.CertificateType,
		IssuanceAmount:   fee.String(),
		TransactionHash:  txHash,
	})
	if err != nil {
		if txHash != "" {
			s.logger.Error("Request rejected after payment",
				zap.String("tx_hash", txHash), zap.String("organization", selected.ID), zap.Error(err))
		}
		s.notify(NoticeError, messageOf(err))
		s.setPhase(PhaseFailed)
		return nil, err
	}
	if msg == "" {
		msg = "Certificate request submitted successfully"
	}
	s.notify(NoticeSuccess, msg)

	s.mu.Lock()
	s.form = Form{}
	s.gen++
	s.dropLookupLocked()
	s.selected = nil
	s.mu.Unlock()

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("Refresh after submission failed", zap.Error(err))
	}
	s.setPhase(PhaseSuccess)
	return req, nil
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

func (s *Session) notify(level NoticeLevel, msg string) {
	s.notifier.Notify(Notice{Level: level, Message: msg})
}

func messageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
