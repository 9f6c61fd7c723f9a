package main

import (
	"fmt"

	"github.com/casualjim/zentry"
	"github.com/casualjim/zentry/messages"
	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
)

func newMemoriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memories",
		Short: "Inspect and write the memory store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var assistant string
	add := &cobra.Command{
		Use:   "add <message>",
		Short: "Store a user message, optionally followed by an assistant reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := userPrompt("", args)
			if assistant != "" {
				prompt = append(prompt, messages.Assistant(messages.Text(assistant)))
			}
			if err := zentry.AddMemories(cmd.Context(), a.store, prompt, a.settings.MemoryConfig()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("stored"))
			return nil
		},
	}
	add.Flags().StringVar(&assistant, "assistant", "", "assistant reply to store with the message")

	var raw bool
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the store the way a call would",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := userPrompt("", args)
			cfg := a.settings.MemoryConfig()
			out := cmd.OutOrStdout()
			if raw {
				result, err := zentry.GetMemories(cmd.Context(), a.store, prompt, cfg)
				if err != nil {
					return err
				}
				printer := pp.New()
				printer.SetOutput(out)
				_, err = printer.Println(result)
				return err
			}

			text, err := zentry.RetrieveMemories(cmd.Context(), a.store, prompt, cfg)
			if err != nil {
				return err
			}
			if text == "" {
				fmt.Fprintln(out, color.YellowString("no memories"))
				return nil
			}
			fmt.Fprintln(out, text)
			return nil
		},
	}
	search.Flags().BoolVar(&raw, "raw", false, "print the raw search result")

	cmd.AddCommand(add, search)
	return cmd
}
