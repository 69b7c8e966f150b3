package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"demo-studio/internal/orchestrator"
	"demo-studio/internal/run"
)

// NewRunCmd builds the command that executes one demo pipeline.
func NewRunCmd(deps *Dependencies) *cobra.Command {
	var pipeline string
	var outputDir string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one demo pipeline end to end",
		Long: "Create a session, join the scripted agents, record the call, and download\n" +
			"the rendered video with its metadata sidecar. All session resources are torn\n" +
			"down whether the run succeeds or fails.",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps.App.ApplyOutputDir(outputDir)
			if deps.App.Diagnostics.HasFailures {
				printReport(cmd, deps.App.Diagnostics)
				return fmt.Errorf("preflight checks failed; run 'demo-studio doctor' for details")
			}

			result, err := deps.App.Orchestrator.Run(cmd.Context(), pipeline)
			if err != nil {
				for _, ev := range deps.App.Orchestrator.Events().Since(0) {
					if ev.Type == run.EventTypeStatus {
						cmd.PrintErrf("state: %s\n", ev.State)
					}
				}
				return err
			}

			cmd.Printf("run %s complete\n", result.RunID)
			cmd.Printf("recording: %s\n", result.ArtifactPath)
			cmd.Printf("metadata:  %s.json\n", result.ArtifactPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&pipeline, "pipeline", "p", orchestrator.PipelineWalkthrough,
		"pipeline to run: walkthrough, conversation, or dialogue")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "",
		"directory for the downloaded recording (defaults to the configured output dir)")

	return cmd
}
