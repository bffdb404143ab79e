package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask [text...]",
		Short: "Answer a single question",
		Long: `Runs one turn on a throwaway session and prints the reply
followed by any related questions.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			b, err := newBot(ctx, cfg, root.newLogger(cmd, cfg.LogLevel), nil, nil)
			if err != nil {
				return err
			}

			reply := b.Reply(ctx, strings.Join(args, " "), "")
			if asJSON {
				data, err := json.MarshalIndent(reply, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal reply: %w", err)
				}
				cmd.Println(string(data))
				return nil
			}
			printReply(cmd, reply)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output the reply as JSON")
	return cmd
}
