package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/srcmirror/srcmirror/internal/generate"
)

var (
	regenSnapshotID string
	regenOutDir     string
)

var regenCmd = &cobra.Command{
	Use:   "regen [path]",
	Short: "Regenerate source from the block store",
	Long: `Regenerates source text from stored blocks alone. With a path argument
the regenerated container prints to stdout; with --out every container in
the snapshot is written under the output directory.

Examples:
  srcmirror regen --snapshot <id> src/main.py
  srcmirror regen --snapshot <id> --out ./mirror`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if regenSnapshotID == "" {
			return fmt.Errorf("--snapshot is required")
		}
		if len(args) == 0 && regenOutDir == "" {
			return fmt.Errorf("provide a container path or --out")
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		opts := generate.Options{GroupImports: cfg.Generate.GroupImports}

		if len(args) == 1 {
			c, err := st.ContainerByPath(cmd.Context(), regenSnapshotID, args[0])
			if err != nil {
				return err
			}
			text, err := generate.Container(cmd.Context(), st, c.ID, opts)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(text)
			return err
		}

		snap, err := st.GetSnapshot(cmd.Context(), regenSnapshotID)
		if err != nil {
			return err
		}
		for _, id := range snap.ContainerIDs {
			c, err := st.GetContainer(cmd.Context(), id)
			if err != nil {
				return err
			}
			text, err := generate.Container(cmd.Context(), st, c.ID, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", c.Path, err)
			}
			dest := filepath.Join(regenOutDir, filepath.FromSlash(c.Path))
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(dest, text, 0o644); err != nil {
				return err
			}
		}
		fmt.Printf("wrote %d containers to %s\n", len(snap.ContainerIDs), regenOutDir)
		return nil
	},
}

func init() {
	regenCmd.Flags().StringVar(&regenSnapshotID, "snapshot", "", "snapshot id to regenerate from")
	regenCmd.Flags().StringVar(&regenOutDir, "out", "", "directory to write regenerated sources into")
	rootCmd.AddCommand(regenCmd)
}
