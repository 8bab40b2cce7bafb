package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func TestRootCommandTree(t *testing.T) {
	want := []string{"regen", "snapshot", "verify", "version"}
	for _, name := range want {
		if _, ok := findCommand(rootCmd, name); !ok {
			t.Errorf("command %q missing from CLI tree", name)
		}
	}
}

func TestPersistentFlagsRegistered(t *testing.T) {
	got := make(map[string]struct{})
	rootCmd.PersistentFlags().VisitAll(func(flag *pflag.Flag) {
		got[flag.Name] = struct{}{}
	})

	for _, name := range []string{"config", "db"} {
		if _, ok := got[name]; !ok {
			t.Errorf("persistent flag %q not registered", name)
		}
	}
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   []string
	}{
		{"regen", []string{"snapshot", "out"}},
		{"verify", []string{"snapshot"}},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			cmd, ok := findCommand(rootCmd, tt.command)
			if !ok {
				t.Fatalf("command %q missing from CLI tree", tt.command)
			}
			for _, name := range tt.flags {
				if cmd.Flags().Lookup(name) == nil {
					t.Errorf("%s: flag %q not registered", tt.command, name)
				}
			}
		})
	}
}

func findCommand(root *cobra.Command, name string) (*cobra.Command, bool) {
	for _, child := range root.Commands() {
		if child.Name() == name {
			return child, true
		}
	}
	return nil, false
}
