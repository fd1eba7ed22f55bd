package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/intervalindex/pkg/alg/interval"
	"github.com/Sumatoshi-tech/intervalindex/pkg/dataset"
	"github.com/Sumatoshi-tech/intervalindex/pkg/observability"
)

// ErrValidationFailed is returned when a dataset has violations.
var ErrValidationFailed = errors.New("dataset validation failed")

// NewValidateCommand creates the validate command.
func NewValidateCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a dataset against the schema",
		Long: `Check a dataset document against the embedded JSON schema and verify
that every entry has start < end. Without an argument the configured
dataset file is checked.

Examples:
  intervalindex validate intervals.yaml
  intervalindex validate -o json intervals.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.newSession(cmd, observability.ModeCLI)
			if err != nil {
				return err
			}

			path := sess.cfg.Index.File
			if len(args) == 1 {
				path = args[0]
			}

			return sess.close(runValidate(sess, path))
		},
	}
}

func runValidate(sess *session, path string) error {
	if path == "" {
		return ErrMissingFile
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read dataset %s: %w", path, err)
	}

	fieldErrors, err := dataset.Validate(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if len(fieldErrors) == 0 {
		fieldErrors, err = rangeErrors(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	err = sess.renderer.Validation(path, fieldErrors)
	if err != nil {
		return err
	}

	if len(fieldErrors) > 0 {
		return fmt.Errorf("%w: %d problem(s) in %s", ErrValidationFailed, len(fieldErrors), path)
	}

	return nil
}

// rangeErrors reports entries whose bounds are not strictly increasing.
func rangeErrors(raw []byte) ([]dataset.FieldError, error) {
	doc, err := dataset.Parse(raw)
	if err != nil {
		return nil, err
	}

	var fieldErrors []dataset.FieldError

	for i, entry := range doc.Entries {
		_, err = interval.NewInterval(entry.Start, entry.End, entry.Data)
		if err != nil {
			fieldErrors = append(fieldErrors, dataset.FieldError{
				Field:       "intervals." + strconv.Itoa(i),
				Description: err.Error(),
			})
		}
	}

	return fieldErrors, nil
}
