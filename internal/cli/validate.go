package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/worldcal/internal/compiler"
	"github.com/roach88/worldcal/internal/loader"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <template>",
		Short: "Check a calendar template for structural errors",
		Long: `Check a calendar template without printing its compiled form.

Every validation problem is reported, not just the first. Unit trees that
contain a cycle or exceed the maximum depth are reported as well.

Exit codes:
  0 - Calendar is valid
  1 - Calendar has validation errors
  2 - Template could not be loaded`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, ref string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cal, err := loader.Resolve(ref)
	if err != nil {
		return formatter.Fail(err)
	}
	formatter.VerboseLog("Validating calendar %q", cal.Name)

	validationErrors := compiler.Validate(cal)
	if len(validationErrors) == 0 {
		// Structure checks need the graph walk done by Compile.
		if _, err := compiler.Compile(cal); err != nil {
			var ce *compiler.CompileError
			if !errors.As(err, &ce) {
				return formatter.Fail(err)
			}
			validationErrors = append(validationErrors, compileToValidation(ce)...)
		}
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}
	return outputValidateSuccess(formatter)
}

func compileToValidation(ce *compiler.CompileError) []compiler.ValidationError {
	if len(ce.Details) > 0 {
		return ce.Details
	}
	msg := ce.Message
	if len(ce.Path) > 0 {
		msg = fmt.Sprintf("%s (%s)", ce.Message, strings.Join(ce.Path, " → "))
	}
	return []compiler.ValidationError{{Field: "relations", Message: msg, Code: string(ce.Code)}}
}

// outputValidateSuccess outputs successful validation.
func outputValidateSuccess(formatter *OutputFormatter) error {
	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true})
	}
	fmt.Fprintln(formatter.Writer, "✓ Validation passed")
	return nil
}

// outputValidationErrors outputs validation errors. Validation failures
// exit with ExitFailure.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.JSON() {
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: fmt.Sprintf("validation failed with %d error(s)", len(errs)),
			},
		}
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s\n", e.Error())
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
