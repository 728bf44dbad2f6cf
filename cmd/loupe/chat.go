package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var chatConversationID string

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask about the workspace, or start an interactive session",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		chatAgent, err := rt.newAgent()
		if err != nil {
			return err
		}

		// One-shot mode when a question is given on the command line.
		if len(args) > 0 {
			reply, err := chatAgent.Chat(cmd.Context(), chatConversationID, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Println(reply.Content)
			return nil
		}

		fmt.Println("Loupe chat. Type 'exit' to quit.")
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		conversationID := chatConversationID
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				return nil
			}

			reply, err := chatAgent.Chat(cmd.Context(), conversationID, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			conversationID = reply.ConversationID
			fmt.Println(reply.Content)
		}
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatConversationID, "conversation", "c", "", "resume an existing conversation")
}
