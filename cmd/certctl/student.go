package main

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cert-chain/credential-portal/credential-portal-backend/internal/dashboard"
	"cert-chain/credential-portal/credential-portal-backend/pkg/chain"
)

func newRegisterCmd(opts *options) *cobra.Command {
	var in dashboard.RegisterInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a student or organization account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			res, err := opts.client().Register(ctx, in)
			if err != nil {
				return err
			}
			if err := opts.saveToken(res.Token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s) as %s\n", res.Name, res.WalletAddress, res.UserType)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.WalletAddress, "wallet", "", "wallet address")
	f.StringVar(&in.Name, "name", "", "display name")
	f.StringVar(&in.UserType, "type", "student", "student or organization")
	f.StringVar(&in.Password, "password", "", "password")
	f.StringVar(&in.Email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("wallet")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLoginCmd(opts *options) *cobra.Command {
	var wallet, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			res, err := opts.client().Login(ctx, wallet, password)
			if err != nil {
				return err
			}
			if err := opts.saveToken(res.Token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", res.Name, res.UserType)
			return nil
		},
	}
	cmd.Flags().StringVar(&wallet, "wallet", "", "wallet address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("wallet")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newOrgsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "orgs",
		Short: "List organizations that issue certificates",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			orgs, err := opts.client().Organizations(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tWALLET")
			for _, o := range orgs {
				fmt.Fprintf(w, "%s\t%s\t%s\n", o.ID, o.Name, o.WalletAddress)
			}
			return w.Flush()
		},
	}
}

func newFeeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "fee <organization-id>",
		Short: "Show an organization's on-chain issuance fee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			org, err := findOrganization(ctx, opts, args[0])
			if err != nil {
				return err
			}
			evm, cfg, err := opts.chainClient(ctx)
			if err != nil {
				return err
			}
			defer evm.Close()

			fee, err := evm.IssuanceFee(ctx, org.WalletAddress)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", chain.FormatEther(fee), cfg.Chain.Currency)
			return nil
		},
	}
}

func newRequestCmd(opts *options) *cobra.Command {
	var orgID string
	var form dashboard.Form
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Request a certificate, paying the organization's fee first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			evm, cfg, err := opts.chainClient(ctx)
			if err != nil {
				return err
			}
			defer evm.Close()

			out := cmd.ErrOrStderr()
			session := dashboard.NewSession(dashboard.SessionConfig{
				Backend: opts.client(),
				Fees:    evm,
				Payer:   evm,
				Wallet:  evm.Address(),
				Notifier: dashboard.NotifierFunc(func(n dashboard.Notice) {
					fmt.Fprintf(out, "[%s] %s\n", n.Level, n.Message)
				}),
				Currency: cfg.Chain.Currency,
				Logger:   opts.logger(),
			})
			if err := session.Load(ctx); err != nil {
				return err
			}
			if err := session.SelectOrganization(ctx, orgID); err != nil {
				return err
			}
			session.UpdateForm(form)

			req, err := session.Submit(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Request %s is %s\n", req.ID, req.Status)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&orgID, "org", "", "organization id (see certctl orgs)")
	f.StringVar(&form.USN, "usn", "", "university seat number")
	f.StringVar(&form.YearOfGraduation, "year", "", "year of graduation")
	f.StringVar(&form.CertificateType, "type", "", "certificate type")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func newRequestsCmd(opts *options) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "List your certificate requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			reqs, err := opts.client().StudentRequests(ctx)
			if err != nil {
				return err
			}
			return printRequests(cmd.OutOrStdout(), dashboard.Requests(reqs).Filter(search), false)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "filter by organization, usn, year, type, status or remarks")
	return cmd
}

func newCertificatesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "certificates",
		Short: "List issued certificates with download links",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			client := opts.client()
			certs, err := client.ReceivedCertificates(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ORGANIZATION\tTYPE\tYEAR\tISSUED\tDOWNLOAD")
			for _, c := range certs {
				issued := ""
				if c.IssuedAt != nil {
					issued = c.IssuedAt.Format("2006-01-02")
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					c.Organization.Name, c.CertificateType, c.YearOfGraduation, issued, client.DownloadURL(c.IPFSHash))
			}
			return w.Flush()
		},
	}
}

func findOrganization(ctx context.Context, opts *options, id string) (*dashboard.Organization, error) {
	orgs, err := opts.client().Organizations(ctx)
	if err != nil {
		return nil, err
	}
	for i := range orgs {
		if orgs[i].ID == id {
			return &orgs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", dashboard.ErrUnknownOrganization, id)
}

func printRequests(out io.Writer, reqs dashboard.Requests, showStudent bool) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if showStudent {
		fmt.Fprintln(w, "ID\tSTUDENT\tUSN\tYEAR\tTYPE\tFEE\tSTATUS\tREMARKS")
	} else {
		fmt.Fprintln(w, "ID\tORGANIZATION\tUSN\tYEAR\tTYPE\tFEE\tSTATUS\tREMARKS")
	}
	for _, r := range reqs {
		party := r.Organization.Name
		if showStudent {
			party = r.Student.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, party, r.USN, strconv.Itoa(r.YearOfGraduation), r.CertificateType, formatFee(r.IssuanceAmount), r.Status, r.Remarks)
	}
	return w.Flush()
}

func formatFee(wei string) string {
	amount, ok := new(big.Int).SetString(wei, 10)
	if !ok {
		return wei
	}
	return chain.FormatEther(amount)
}
