package cmd

import (
	"context"
	"fmt"

	"github.com/pixzlo/pixzlo-bridge/internal/application"
	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/spf13/cobra"
)

func newFigmaCmd(app *app) *cobra.Command {
	figmaCmd := &cobra.Command{
		Use:   "figma",
		Short: "Figma integration metadata, frame renders and authorization",
	}

	figmaCmd.AddCommand(
		newFigmaMetadataCmd(app),
		newFigmaRenderCmd(app),
		newFigmaConnectCmd(app),
	)
	return figmaCmd
}

func newFigmaMetadataCmd(app *app) *cobra.Command {
	var (
		websiteURL  string
		workspaceID string
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Fetch figma integration metadata for a website",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := app.bridge.Figma.FetchMetadata(cmd.Context(), application.FetchMetadataQuery{
				WebsiteURL:  websiteURL,
				Force:       force,
				WorkspaceID: domain.WorkspaceID(workspaceID),
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}

	cmd.Flags().StringVar(&websiteURL, "website", "", "website url the metadata is scoped to")
	cmd.Flags().StringVar(&workspaceID, "workspace", "", "workspace id (defaults to the selected workspace)")
	cmd.Flags().BoolVar(&force, "force", false, "bypass the metadata cache")
	return cmd
}

func newFigmaRenderCmd(app *app) *cobra.Command {
	var (
		fileID    string
		nodeID    string
		imageOnly bool
	)

	cmd := &cobra.Command{
		Use:   "render [figma-url]",
		Short: "Render a frame and list its overlay elements",
		Long:  "render accepts a figma share url carrying a node-id, or --file and --node.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && (fileID != "" || nodeID != "") {
				return fmt.Errorf("%w: pass either a figma url or --file/--node", domain.ErrValidation)
			}

			if imageOnly {
				if len(args) == 1 {
					ref, err := domain.ParseFrameURL(args[0])
					if err != nil {
						return err
					}
					fileID, nodeID = ref.FileID, ref.NodeID
				}
				imageURL, err := app.bridge.Frames.RenderImage(cmd.Context(), fileID, nodeID)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), imageURL)
				return err
			}

			var (
				result domain.FrameRenderResult
				err    error
			)
			if len(args) == 1 {
				result, err = app.bridge.Frames.RenderFrame(cmd.Context(), args[0])
			} else {
				result, err = app.bridge.Frames.RenderNode(cmd.Context(), fileID, nodeID)
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}

	cmd.Flags().StringVar(&fileID, "file", "", "figma file id")
	cmd.Flags().StringVar(&nodeID, "node", "", "node id, in 1:2 or 1-2 form")
	cmd.Flags().BoolVar(&imageOnly, "image-only", false, "only print the rendered image url")
	return cmd
}

func newFigmaConnectCmd(app *app) *cobra.Command {
	var workspaceID string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Authorize figma for the workspace in a browser popup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := app.bridge.Workspaces.Require(cmd.Context(), domain.WorkspaceID(workspaceID))
			if err != nil {
				return err
			}
			err = waitForAuthorization(cmd.Context(), cmd.ErrOrStderr(), string(target), func(ctx context.Context) error {
				return app.bridge.OAuth.Authorize(ctx, target)
			})
			if application.IsCancelled(err) {
				return fmt.Errorf("authorization cancelled: %w", err)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "figma connected")
			return err
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "", "workspace id (defaults to the selected workspace)")
	return cmd
}
