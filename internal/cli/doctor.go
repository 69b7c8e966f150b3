package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"demo-studio/internal/domain"
)

// NewDoctorCmd builds the preflight diagnostics command.
func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check credentials, browser, and output directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			report := deps.App.Diagnostics
			printReport(cmd, report)

			if report.HasFailures {
				return fmt.Errorf("some prerequisites are missing")
			}
			cmd.Println("\nAll prerequisites met. Ready to record.")
			return nil
		},
	}
}

// printReport writes one line per diagnostic item.
func printReport(cmd *cobra.Command, report domain.DiagnosticReport) {
	for _, item := range report.Items {
		mark := "ok"
		if item.Status == domain.DiagnosticStatusFail {
			mark = "FAIL"
		}
		cmd.Printf("[%4s] %-20s %s\n", mark, item.Name, item.Message)
		if item.Hint != "" && item.Status == domain.DiagnosticStatusFail {
			cmd.Printf("       hint: %s\n", item.Hint)
		}
	}
}
