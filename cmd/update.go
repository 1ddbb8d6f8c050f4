package cmd

import (
	"fmt"

	"github.com/smazurov/pinnode/internal/logging"
	"github.com/smazurov/pinnode/internal/updater"
	"github.com/spf13/cobra"
)

// DefaultRepository is the GitHub slug releases are fetched from.
const DefaultRepository = "smazurov/pinnode"

// CreateUpdateCmd creates the update command.
func CreateUpdateCmd() *cobra.Command {
	var repo string
	var checkOnly bool
	var prerelease bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Check for and apply a new release",
		Long: `Checks GitHub for a newer release and replaces the running binary. ` +
			`The current binary is backed up first; a running daemon picks up the new version on its next restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})

			svc, err := updater.NewService(&updater.Options{Repository: repo, Prerelease: prerelease, NoRestart: true})
			if err != nil {
				return err
			}
			if !svc.IsEnabled() {
				return fmt.Errorf("update disabled: %s", svc.DisabledReason())
			}

			out := cmd.OutOrStdout()
			info, err := svc.CheckForUpdate(cmd.Context())
			if err != nil {
				return err
			}
			if !info.UpdateAvailable {
				fmt.Fprintf(out, "pinnode %s is up to date (latest %s)\n", info.CurrentVersion, info.LatestVersion)
				return nil
			}

			fmt.Fprintf(out, "update available: %s -> %s\n", info.CurrentVersion, info.LatestVersion)
			if checkOnly {
				return nil
			}
			if err := svc.ApplyUpdate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(out, "updated to %s\n", info.LatestVersion)
			return nil
		},
	}

	cmd.Flags().StringVar(&repo, "repo", DefaultRepository, "GitHub repository slug")
	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only report whether an update is available")
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Include prereleases")
	return cmd
}
