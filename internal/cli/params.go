package cli

import (
	"encoding/json"
	"fmt"

	"actionhub/internal/actions"
	"actionhub/internal/api/validator"

	"github.com/spf13/cobra"
)

type ParamsResult struct {
	Action string   `json:"action"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// NewCheckParamsCommand runs the parameter validator against a JSON document.
func NewCheckParamsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-params <catalog> <actionKey> <params-json>",
		Short: "Check a params object against an action's schema",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(args[0])
			if err != nil {
				return err
			}
			registry := actions.NewRegistry()
			if err := cat.RegisterInto(registry); err != nil {
				return err
			}
			cfg, err := registry.Get(args[1])
			if err != nil {
				return err
			}

			var params map[string]interface{}
			if err := json.Unmarshal([]byte(args[2]), &params); err != nil {
				return fmt.Errorf("params must be a JSON object: %w", err)
			}

			result := ParamsResult{Action: cfg.Key, Valid: true}
			if invalid, ok := validator.ValidateParams(cfg.Params, params).(validator.Invalid); ok {
				result.Valid = false
				result.Errors = invalid.Errors
			}

			if rootOpts.Format == "json" {
				if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else if result.Valid {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ params valid for %s\n", cfg.Key)
			} else {
				for _, e := range result.Errors {
					fmt.Fprintf(cmd.OutOrStdout(), "✗ %s\n", e)
				}
			}

			if !result.Valid {
				return fmt.Errorf("%d invalid parameter(s)", len(result.Errors))
			}
			return nil
		},
	}
}
