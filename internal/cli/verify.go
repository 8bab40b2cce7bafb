package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/srcmirror/srcmirror/internal/generate"
	"github.com/srcmirror/srcmirror/internal/validate"
)

var verifySnapshotID string

var verifyCmd = &cobra.Command{
	Use:   "verify <repo-root>",
	Short: "Round-trip check stored blocks against the original sources",
	Long: `Regenerates every container in a snapshot and checks semantic
equivalence against the files currently on disk.

Examples:
  srcmirror verify . --snapshot <id>`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if verifySnapshotID == "" {
			return fmt.Errorf("--snapshot is required")
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		snap, err := st.GetSnapshot(cmd.Context(), verifySnapshotID)
		if err != nil {
			return err
		}

		// Round-trip comparison always regenerates with default options;
		// import grouping reorders statements and belongs to regen only.
		opts := generate.Options{}
		failed := 0
		for _, id := range snap.ContainerIDs {
			c, err := st.GetContainer(cmd.Context(), id)
			if err != nil {
				return err
			}
			original, err := os.ReadFile(filepath.Join(args[0], filepath.FromSlash(c.Path)))
			if err != nil {
				failed++
				fmt.Printf("fail  %s: %v\n", c.Path, err)
				continue
			}
			regen, err := generate.Container(cmd.Context(), st, c.ID, opts)
			if err != nil {
				failed++
				fmt.Printf("fail  %s: %v\n", c.Path, err)
				continue
			}
			res, err := validate.RoundTrip(cmd.Context(), c.Language, original, regen)
			if err != nil {
				failed++
				fmt.Printf("fail  %s: %v\n", c.Path, err)
				continue
			}
			if !res.Valid {
				failed++
				fmt.Printf("fail  %s: %s\n", c.Path, strings.Join(res.Diagnostics, "; "))
				continue
			}
			mark := "ok   "
			if res.ByteEqual {
				mark = "exact"
			}
			fmt.Printf("%s %s\n", mark, c.Path)
		}

		fmt.Printf("\n%d containers, %d failed\n", len(snap.ContainerIDs), failed)
		if failed > 0 {
			return fmt.Errorf("round-trip verification failed for %d containers", failed)
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifySnapshotID, "snapshot", "", "snapshot id to verify")
	rootCmd.AddCommand(verifyCmd)
}
