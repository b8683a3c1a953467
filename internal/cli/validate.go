package cli

import (
	"fmt"

	"actionhub/internal/actions"
	"actionhub/internal/api/validator"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool     `json:"valid"`
	Actions    int      `json:"actions"`
	Operations int      `json:"operations"`
	Errors     []string `json:"errors,omitempty"`
}

// NewValidateCommand checks a catalogue the way the server does at startup.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <catalog>",
		Short: "Validate a catalogue without starting the server",
		Long: `Parses the catalogue, registers every action and checks each parameter
rule tag. Exits non-zero when anything the server would reject is found.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := validateCatalog(args[0])

			if rootOpts.Format == "json" {
				if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else if result.Valid {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %d actions, %d operations: catalogue valid\n", result.Actions, result.Operations)
			} else {
				for _, e := range result.Errors {
					fmt.Fprintf(cmd.OutOrStdout(), "✗ %s\n", e)
				}
			}

			if !result.Valid {
				return fmt.Errorf("catalogue %s is invalid", args[0])
			}
			return nil
		},
	}
}

func validateCatalog(path string) ValidationResult {
	cat, err := loadCatalog(path)
	if err != nil {
		return ValidationResult{Errors: []string{err.Error()}}
	}

	result := ValidationResult{Actions: len(cat.Actions), Operations: len(cat.Operations)}
	registry := actions.NewRegistry()
	for _, a := range cat.Actions {
		if err := registry.Register(a); err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		if err := validator.CheckSchema(a.Params); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("action %s: %v", a.Key, err))
		}
	}
	result.Valid = len(result.Errors) == 0
	return result
}
