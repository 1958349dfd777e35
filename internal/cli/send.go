package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
)

var sendConversation string

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send one message and print the reply",
	Long: `Send a message to a conversation and print the assistant reply as JSON.

Without --conversation a new conversation is started.

Examples:
  echoal send "hello there"
  echoal send --conversation 3f2a... "and what about tomorrow?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVarP(&sendConversation, "conversation", "C", "", "conversation id to continue")
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	reply, err := a.chat.Submit(ctx, sendConversation, strings.Join(args, " "))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(reply)
}
