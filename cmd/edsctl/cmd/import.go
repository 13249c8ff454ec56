package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/edocument-exchange/internal/builder/ubl"
	"github.com/edocument-exchange/internal/edocument_processor"
	"github.com/spf13/cobra"
)

type importOptions struct {
	recordID  int64
	companyID int64
	save      bool
}

func newImportCmd(root *options) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import <invoice.xml>",
		Short: "Read a French CIUS invoice back into a draft vendor bill",
		Long: `Parse a received French CIUS invoice or credit note and print the draft
vendor bill it maps to. With --save the draft is stored under the given record
id, which must be the id the host assigned to the bill.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.save && (opts.recordID <= 0 || opts.companyID <= 0) {
				return errors.New("--save needs --id and --company-id")
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			rec, err := ubl.ImportFR(data)
			if err != nil {
				return err
			}
			rec.ID = opts.recordID
			rec.CompanyID = opts.companyID

			if opts.save {
				err := root.withRuntime(cmd, func(ctx context.Context, rt *edocument_processor.Runtime) error {
					rec.UpdatedAt = time.Now().UTC()
					return rt.Repos.Records.Upsert(ctx, rec)
				})
				if err != nil {
					return fmt.Errorf("failed to save record %d: %w", rec.ID, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved draft %s as record %d\n", rec.Name, rec.ID)
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}

	cmd.Flags().Int64Var(&opts.recordID, "id", 0, "Record id assigned by the host")
	cmd.Flags().Int64Var(&opts.companyID, "company-id", 0, "Company receiving the bill")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Store the draft record")
	return cmd
}
