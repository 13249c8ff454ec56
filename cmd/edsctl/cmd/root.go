package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/edocument-exchange/internal/config"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/edocument_processor"
	"github.com/edocument-exchange/internal/logger"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

// options are the persistent flags shared by every command.
type options struct {
	configName string
	verbose    bool
}

// NewRootCmd assembles the command tree. Commands that need the stores read
// "<config>.env" the same way the processor does.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "edsctl",
		Short: "Operate the e-document exchange from the command line",
		Long: `edsctl renders and validates government e-documents offline and runs
the periodic jobs of the processor on demand.

Examples:
  # Render a Romanian CIUS invoice from a record file
  edsctl build invoice.json --profile ro_cius -o invoice.xml

  # Check records against the profile rules
  edsctl validate *.json --profile jo_ubl

  # Read a French CIUS invoice back into a draft vendor bill
  edsctl import facture.xml --company-id 2 --save

  # Synchronize the eTransport flows of one company for a day
  edsctl aggregate --company-id 2 --profile ro_etransport --at 2024-07-10

  # Run a single status poll
  edsctl poll`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configName, "config", "c", "edocument_processor", "Base name of the configuration, or the path of a .env file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level")

	root.AddCommand(
		newBuildCmd(),
		newValidateCmd(),
		newImportCmd(opts),
		newAggregateCmd(opts),
		newPollCmd(opts),
	)
	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}

// load reads the configuration and creates a logger writing to stderr. A
// --config value ending in .env names the file itself.
func (o *options) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if strings.HasSuffix(o.configName, ".env") {
		cfg, err = config.LoadConfigFile(o.configName)
	} else {
		cfg, err = config.LoadConfig(o.configName)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, logger.NewWriterLogger(cmd.ErrOrStderr(), cfg), nil
}

// withRuntime connects to the stores, runs fn and closes the connections again.
func (o *options) withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *edocument_processor.Runtime) error) error {
	cfg, log, err := o.load(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	rt, err := edocument_processor.NewRuntime(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		rt.Close(closeCtx)
	}()
	return fn(ctx, rt)
}

func readRecord(path string) (*record.SourceRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var rec record.SourceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", path, err)
	}
	return &rec, nil
}

func parseProfile(value string) (shared.Profile, error) {
	profile := shared.Profile(value)
	if !profile.Valid() {
		return "", fmt.Errorf("%w: %q", shared.ErrInvalidProfile, value)
	}
	return profile, nil
}

func parseDay(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	day, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return day, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
