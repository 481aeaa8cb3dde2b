package cmd

import (
	"fmt"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/spf13/cobra"
)

func newWorkspaceCmd(app *app) *cobra.Command {
	workspaceCmd := &cobra.Command{
		Use:   "workspace",
		Short: "Show or change the selected workspace",
		Long: `Show or change the selected workspace.

The storage database is locked while the browser runs the native host. Commands
started meanwhile use only the fallback file, so they do not see a selection the
running host holds in the database, and a selection made here (including the
first-active-workspace fallback persisted by "show") lands in the fallback file.
The host picks such a value up only when its database has no selection of its
own. Close the browser first when the two must agree.`,
	}

	workspaceCmd.AddCommand(
		newWorkspaceShowCmd(app),
		newWorkspaceSelectCmd(app),
		newWorkspaceClearCmd(app),
		newWorkspaceListCmd(app),
	)
	return workspaceCmd
}

func newWorkspaceShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective workspace id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			workspaceID, err := app.bridge.Workspaces.Require(cmd.Context(), "")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), workspaceID)
			return err
		},
	}
}

func newWorkspaceSelectCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "select <workspace-id>",
		Short: "Persist a workspace selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.bridge.Workspaces.Select(cmd.Context(), domain.WorkspaceID(args[0])); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "selected workspace %s\n", args[0])
			return err
		},
	}
}

func newWorkspaceClearCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the persisted workspace selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.bridge.Workspaces.Clear(cmd.Context())
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "workspace selection cleared")
			return err
		},
	}
}

func newWorkspaceListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the active workspaces of the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			workspaces, err := app.bridge.Workspaces.Workspaces(cmd.Context())
			if err != nil {
				return err
			}
			current, _ := app.bridge.Workspaces.Current(cmd.Context())

			for _, workspace := range workspaces {
				marker := " "
				if workspace.ID == current {
					marker = "*"
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\t%s\n", marker, workspace.ID, workspace.Name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
