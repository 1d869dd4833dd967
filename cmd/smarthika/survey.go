package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"smarthika/internal/submission"
	"smarthika/pkg/domain"
)

var errInvalidRecord = errors.New("record failed validation")

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var module string
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a survey record, or one module's fields with --module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			engine, err := rulesEngine(cfg)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if module != "" {
				id, err := domain.ParseModuleID(module)
				if err != nil {
					return err
				}
				var fields map[string]any
				if err := json.Unmarshal(raw, &fields); err != nil {
					return fmt.Errorf("decode %s: %w", args[0], err)
				}
				errs, err := engine.ValidateModule(cmd.Context(), id, fields)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), map[string]any{"module": id, "valid": len(errs) == 0, "errors": errs}); err != nil {
					return err
				}
				if len(errs) > 0 {
					return errInvalidRecord
				}
				return nil
			}
			rec, err := decodeRecord(raw)
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			report, err := engine.ValidateRecord(cmd.Context(), rec)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.Valid {
				return errInvalidRecord
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&module, "module", "", "validate a single module's fields (profile, canvas, ...)")
	return cmd
}

func newSubmitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <file>",
		Short: "Validate a survey record and send it to the spreadsheet web-hook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			engine, err := rulesEngine(cfg)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			rec, err := decodeRecord(raw)
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			report, err := engine.ValidateRecord(cmd.Context(), rec)
			if err != nil {
				return err
			}
			if !report.Valid {
				_ = printJSON(cmd.OutOrStdout(), report)
				return errInvalidRecord
			}
			transport := submission.New(cfg.SheetsWebhookURL,
				submission.WithTimeout(cfg.SubmitTimeout),
				submission.WithLogger(logger.Named("submission")))
			out := transport.Submit(cmd.Context(), uuid.NewString(), rec)
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if !out.Success {
				return fmt.Errorf("submission failed: %s", out.Error)
			}
			return nil
		},
	}
}

// decodeRecord overlays raw onto the default record so omitted modules keep
// their initial values.
func decodeRecord(raw []byte) (domain.Record, error) {
	rec := domain.DefaultRecord()
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Record{}, err
	}
	return rec, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
