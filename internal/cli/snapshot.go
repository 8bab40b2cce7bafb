package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/srcmirror/srcmirror/internal/loader"
	"github.com/srcmirror/srcmirror/internal/model"
	"github.com/srcmirror/srcmirror/internal/pipeline"
	"github.com/srcmirror/srcmirror/internal/report"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <repo-root>",
	Short: "Extract a repository into the block store",
	Long: `Scans a repository, extracts every supported source file into semantic
blocks, and commits them to the store under a new snapshot.

Examples:
  srcmirror snapshot .
  srcmirror snapshot ~/src/myrepo --db blocks.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		snap := &model.Snapshot{
			ID:        uuid.NewString(),
			CreatedAt: time.Now().UTC(),
		}

		sources, err := loader.Load(snap.ID, args[0], loader.Options{
			Languages:   cfg.Loader.Languages,
			MaxFileSize: cfg.Loader.MaxFileSize,
		})
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			return fmt.Errorf("no supported source files under %s", args[0])
		}

		outcomes, summary, err := pipeline.Run(cmd.Context(), st, snap, sources, pipelineConfig(), os.Stderr)
		if err != nil {
			return err
		}

		fmt.Println(report.Render(snap.ID, outcomes, summary))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}
