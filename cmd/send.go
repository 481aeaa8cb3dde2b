package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/pixzlo/pixzlo-bridge/internal/messaging"
	"github.com/spf13/cobra"
)

func newSendCmd(app *app) *cobra.Command {
	var (
		list      bool
		senderURL string
	)

	cmd := &cobra.Command{
		Use:   "send <type> [json-payload]",
		Short: "Dispatch one message as if an extension context had sent it",
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.RangeArgs(1, 2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return writeMessageTypes(cmd, app.dispatcher.Types())
			}

			msg := messaging.Message{Type: args[0]}
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return errors.New("payload is not valid JSON")
				}
				msg.Data = json.RawMessage(args[1])
			}

			response, handled := app.dispatcher.Dispatch(cmd.Context(), msg, messaging.Sender{ID: "cli", URL: senderURL})
			if !handled {
				return fmt.Errorf("unknown message type %q (see send --list)", msg.Type)
			}
			if err := writeJSON(cmd, response); err != nil {
				return err
			}
			if !response.Success {
				return fmt.Errorf("%s failed: %s", msg.Type, response.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list the message types the bridge answers")
	cmd.Flags().StringVar(&senderURL, "sender-url", "", "page url reported as the message sender")
	return cmd
}

func writeMessageTypes(cmd *cobra.Command, types []messaging.HandlerInfo) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, info := range types {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", info.Type, info.Description); err != nil {
			return err
		}
	}
	return w.Flush()
}
