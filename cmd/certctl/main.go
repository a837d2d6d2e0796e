// Command certctl is a terminal client for the credential portal: students
// request and pay for certificates, organizations review and issue them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cert-chain/credential-portal/credential-portal-backend/internal/config"
	"cert-chain/credential-portal/credential-portal-backend/internal/dashboard"
	"cert-chain/credential-portal/credential-portal-backend/internal/logging"
	"cert-chain/credential-portal/credential-portal-backend/pkg/chain"
)

type options struct {
	apiURL     string
	tokenFile  string
	configPath string
	timeout    time.Duration
	privateKey string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var apiErr *dashboard.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintln(os.Stderr, "error:", apiErr.Message)
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "certctl",
		Short:         "Request, review and issue blockchain-backed certificates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	home, _ := os.UserHomeDir()
	flags := root.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api", envOr("CERTCTL_API", "http://localhost:5000"), "portal backend URL")
	flags.StringVar(&opts.tokenFile, "token-file", filepath.Join(home, ".certctl", "token"), "where the session token is kept")
	flags.StringVar(&opts.configPath, "config", os.Getenv("CONFIG_PATH"), "config file with the chain section")
	flags.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall command timeout")
	flags.StringVar(&opts.privateKey, "private-key", os.Getenv("CERTCTL_PRIVATE_KEY"), "hex wallet key used to pay issuance fees")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newRegisterCmd(opts),
		newLoginCmd(opts),
		newOrgsCmd(opts),
		newFeeCmd(opts),
		newRequestCmd(opts),
		newRequestsCmd(opts),
		newCertificatesCmd(opts),
		newOrgCmd(opts),
	)
	return root
}

func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

// client returns an API client carrying the saved token, if any.
func (o *options) client() *dashboard.APIClient {
	c := dashboard.NewAPIClient(o.apiURL, 30*time.Second)
	if data, err := os.ReadFile(o.tokenFile); err == nil {
		c.SetToken(strings.TrimSpace(string(data)))
	}
	return c
}

func (o *options) saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(o.tokenFile), 0o700); err != nil {
		return err
	}
	return os.WriteFile(o.tokenFile, []byte(token+"\n"), 0o600)
}

func (o *options) logger() *zap.Logger {
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	logger, err := logging.New(config.LoggingConfig{Level: level, Format: "console"})
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// chainClient dials the registry described by the config file and environment.
func (o *options) chainClient(ctx context.Context) (*chain.EVMClient, *config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Chain.RPCURL == "" || cfg.Chain.ContractAddress == "" {
		return nil, nil, errors.New("set CHAIN_RPC_URL and CONTRACT_ADDRESS (or the chain section of --config)")
	}
	client, err := chain.Dial(ctx, chain.Config{
		RPCURL:          cfg.Chain.RPCURL,
		ContractAddress: cfg.Chain.ContractAddress,
		ChainID:         cfg.Chain.ChainID,
		PrivateKey:      o.privateKey,
		CallTimeout:     cfg.Chain.CallTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
