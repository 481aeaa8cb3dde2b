package cmd

import (
	"fmt"

	statusadapter "github.com/pixzlo/pixzlo-bridge/internal/adapters/render/status"
	"github.com/pixzlo/pixzlo-bridge/internal/application"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the signed-in user, workspace and integration state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status := app.bridge.Status(cmd.Context())
			if asJSON {
				return writeJSON(cmd, statusJSON(status))
			}

			rendered, err := app.statusRenderer(status, statusadapter.RenderOptions{
				Now:         app.now(),
				MetadataTTL: app.cfg.Cache.MetadataTTL,
			})
			if err != nil {
				return fmt.Errorf("render status: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the status as JSON")
	return cmd
}

type statusOutput struct {
	application.Status
	FigmaErr  string `json:"FigmaErr,omitempty"`
	LinearErr string `json:"LinearErr,omitempty"`
}

// statusJSON replaces the error fields, which do not marshal, with their text.
func statusJSON(status application.Status) statusOutput {
	out := statusOutput{Status: status}
	if status.FigmaErr != nil {
		out.FigmaErr = status.FigmaErr.Error()
	}
	if status.LinearErr != nil {
		out.LinearErr = status.LinearErr.Error()
	}
	return out
}
