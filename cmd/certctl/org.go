package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cert-chain/credential-portal/credential-portal-backend/internal/dashboard"
)

func newOrgCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Organization commands: review and issue requests",
	}
	cmd.AddCommand(newOrgRequestsCmd(opts), newOrgDecideCmd(opts), newOrgIssueCmd(opts))
	return cmd
}

func newOrgRequestsCmd(opts *options) *cobra.Command {
	var search, export, outPath string
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "List or export requests addressed to your organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			client := opts.client()
			if export != "" {
				data, err := client.ExportOrganizationRequests(ctx, export)
				if err != nil {
					return err
				}
				if outPath == "" {
					outPath = "certificate-requests." + export
				}
				if err := os.WriteFile(outPath, data, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
				return nil
			}

			reqs, err := client.OrganizationRequests(ctx)
			if err != nil {
				return err
			}
			return printRequests(cmd.OutOrStdout(), dashboard.Requests(reqs).Filter(search), true)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "filter requests")
	cmd.Flags().StringVar(&export, "export", "", "export as csv or xlsx instead of listing")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "export file path")
	return cmd
}

func newOrgDecideCmd(opts *options) *cobra.Command {
	var status, remarks string
	cmd := &cobra.Command{
		Use:   "decide <request-id>",
		Short: "Accept or reject a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			req, err := opts.client().UpdateStatus(ctx, args[0], status, remarks)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Request %s is now %s\n", req.ID, req.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "accepted or rejected")
	cmd.Flags().StringVar(&remarks, "remarks", "", "remarks shown to the student")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func newOrgIssueCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "issue <request-id>",
		Short: "Issue the certificate for an accepted request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			client := opts.client()
			req, err := client.IssueCertificate(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Issued %s: %s\n", req.ID, client.DownloadURL(req.IPFSHash))
			return nil
		},
	}
}
