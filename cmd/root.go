package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Browsers start a native host with the calling extension's origin as the
// first argument.
const extensionOriginPrefix = "chrome-extension://"

func Execute() error {
	rootCmd, cleanup := newRootCmd()
	defer func() { _ = cleanup() }()

	rootCmd.SetArgs(normalizeArgs(os.Args[1:]))
	return rootCmd.Execute()
}

// normalizeArgs turns a browser launch into `serve <origin>`. Extra
// browser-specific flags such as --parent-window are dropped.
func normalizeArgs(args []string) []string {
	if len(args) > 0 && strings.HasPrefix(args[0], extensionOriginPrefix) {
		return []string{"serve", args[0]}
	}
	return args
}

func newRootCmd() (*cobra.Command, func() error) {
	rootCmd := &cobra.Command{
		Use:           "pixzlo",
		Short:         "Pixzlo bridge: background host for the Pixzlo browser extension",
		Long:          "pixzlo runs the background side of the Pixzlo extension as a native messaging host. It owns the workspace selection, integration caches, frame renders and the Figma authorization popup, and exposes the same operations as commands for debugging.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd, func() error { return nil }
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(app),
		newWorkspaceCmd(app),
		newFigmaCmd(app),
		newLinearCmd(app),
		newSendCmd(app),
		newStatusCmd(app),
	)

	return rootCmd, app.Close
}
