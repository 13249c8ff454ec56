package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/edocument-exchange/internal/adapter"
	"github.com/edocument-exchange/internal/builder/etransport"
	"github.com/edocument-exchange/internal/builder/ubl"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/validation"
	"github.com/spf13/cobra"
)

type buildOptions struct {
	profile string
	output  string
	force   bool
}

func newBuildCmd() *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build <record.json>",
		Short: "Render the XML document of a record",
		Long: `Render the XML a profile would submit for a single record. The record file
holds the JSON the host hands over to the gateway.

Single record profiles (ro_cius, fr_cius, jo_ubl) produce the UBL invoice or
credit note; ro_etransport produces a declaration covering the one shipment.
The record is validated first unless --force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.profile, "profile", "p", string(shared.ProfileROCIUS), "Profile to render")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the document to this file instead of stdout")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Render even when validation fails")
	return cmd
}

func runBuild(cmd *cobra.Command, opts *buildOptions, path string) error {
	profile, err := parseProfile(opts.profile)
	if err != nil {
		return err
	}
	rec, err := readRecord(path)
	if err != nil {
		return err
	}
	view, err := adapter.Extract(rec, profile)
	if err != nil {
		return err
	}
	if errs := validation.Validate(view); len(errs) > 0 && !opts.force {
		return fmt.Errorf("record %s is not valid for %s:\n  - %s", rec.Name, profile, strings.Join(errs, "\n  - "))
	}

	var content []byte
	now := time.Now().UTC()
	switch {
	case profile == shared.ProfileROETransport:
		content, err = etransport.Build(etransport.Batch{Shipments: []*adapter.View{view}}, now)
	case profile.IsAggregated() || profile == shared.ProfileIDQRIS:
		return fmt.Errorf("%s documents are built from flows or payment requests, not from a single record", profile)
	default:
		var dialect *ubl.Profile
		if dialect, err = ubl.ForProfile(profile); err != nil {
			return err
		}
		content, err = ubl.Build(dialect, view, now)
	}
	if err != nil {
		return err
	}

	if opts.output == "" {
		_, err = cmd.OutOrStdout().Write(content)
		return err
	}
	if err := os.WriteFile(opts.output, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.output, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d bytes)\n", opts.output, len(content))
	return nil
}
