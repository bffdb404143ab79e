package main

import (
	"bufio"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const (
	chatReset = "/reset"
	chatQuit  = "/quit"
)

func newChatCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Reads one message per line from standard input. Follow-up questions
inherit the previous course query. Type /reset to start over and /quit to exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			b, err := newBot(ctx, cfg, root.newLogger(cmd, cfg.LogLevel), nil, nil)
			if err != nil {
				return err
			}

			sessionID := uuid.NewString()
			scanner := bufio.NewScanner(cmd.InOrStdin())
			cmd.Print("> ")
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "":
				case chatQuit:
					return nil
				case chatReset:
					b.Reset(sessionID)
					cmd.Println("Session reset.")
				default:
					printReply(cmd, b.Reply(ctx, line, sessionID))
				}
				cmd.Print("> ")
			}
			cmd.Println()
			return scanner.Err()
		},
	}
}
