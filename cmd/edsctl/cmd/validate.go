package cmd

import (
	"fmt"

	"github.com/edocument-exchange/internal/adapter"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/validation"
	"github.com/spf13/cobra"
)

// ValidationResult is the outcome for one record file.
type ValidationResult struct {
	File   string   `json:"file"`
	Record string   `json:"record,omitempty"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func newValidateCmd() *cobra.Command {
	var (
		profile string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "validate <record.json>...",
		Short: "Check records against the rules of a profile",
		Long: `Run the pre-submission checks of a profile on one or more record files and
print every problem found. The command fails when any record is invalid.

Examples:
  edsctl validate invoice.json --profile ro_cius
  edsctl validate *.json --profile jo_ubl --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseProfile(profile)
			if err != nil {
				return err
			}

			results := make([]*ValidationResult, 0, len(args))
			allValid := true
			for _, file := range args {
				result := validateFile(file, p)
				results = append(results, result)
				allValid = allValid && result.Valid
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(out, results); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					if r.Valid {
						fmt.Fprintf(out, "%s: VALID\n", r.File)
						continue
					}
					fmt.Fprintf(out, "%s: INVALID\n", r.File)
					for _, e := range r.Errors {
						fmt.Fprintf(out, "  - %s\n", e)
					}
				}
			}

			if !allValid {
				return fmt.Errorf("validation failed for some records")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&profile, "profile", "p", string(shared.ProfileROCIUS), "Profile whose rules apply")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the results as JSON")
	return cmd
}

func validateFile(path string, profile shared.Profile) *ValidationResult {
	result := &ValidationResult{File: path, Valid: true, Errors: []string{}}

	rec, err := readRecord(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	result.Record = rec.Name

	view, err := adapter.Extract(rec, profile)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, shared.Message(err))
		return result
	}
	if errs := validation.Validate(view); len(errs) > 0 {
		result.Valid = false
		result.Errors = append(result.Errors, errs...)
	}
	return result
}
