package cmd

import (
	"fmt"

	"github.com/pixzlo/pixzlo-bridge/internal/application"
	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/spf13/cobra"
)

func newLinearCmd(app *app) *cobra.Command {
	linearCmd := &cobra.Command{
		Use:   "linear",
		Short: "Linear integration status and issue creation",
	}

	linearCmd.AddCommand(
		newLinearStatusCmd(app),
		newLinearIssueCmd(app),
	)
	return linearCmd
}

func newLinearStatusCmd(app *app) *cobra.Command {
	var (
		workspaceID string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether linear is connected for the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := app.bridge.Linear.CheckStatus(cmd.Context(), domain.WorkspaceID(workspaceID))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, status)
			}

			line := "linear: not connected"
			if status.Connected {
				line = "linear: connected"
				if status.Organization != "" {
					line += " to " + status.Organization
				}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), line)
			return err
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "", "workspace id (defaults to the selected workspace)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the status as JSON")
	return cmd
}

func newLinearIssueCmd(app *app) *cobra.Command {
	var input domain.LinearIssueInput

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Create a linear issue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			issue, err := app.bridge.Linear.CreateIssue(cmd.Context(), application.CreateLinearIssueCommand{Input: input})
			if err != nil {
				return err
			}
			return writeJSON(cmd, issue)
		},
	}

	cmd.Flags().StringVar(&input.Title, "title", "", "issue title")
	cmd.Flags().StringVar(&input.TeamID, "team", "", "linear team id")
	cmd.Flags().StringVar(&input.Description, "description", "", "issue description (markdown)")
	cmd.Flags().StringVar(&input.ProjectID, "project", "", "linear project id")
	cmd.Flags().IntVar(&input.Priority, "priority", 0, "priority from 0 (none) to 4 (low)")
	cmd.Flags().StringSliceVar(&input.LabelIDs, "label", nil, "label id, repeatable")
	cmd.Flags().StringVar(&input.AssigneeID, "assignee", "", "assignee user id")
	cmd.Flags().StringVar(&input.PageURL, "page-url", "", "page the issue was reported from")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("team")
	return cmd
}
