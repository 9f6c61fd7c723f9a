package main

import (
	"strings"

	"github.com/casualjim/zentry/config"
	"github.com/casualjim/zentry/memory"
	"github.com/casualjim/zentry/messages"
	"github.com/spf13/cobra"
)

// app holds what every subcommand needs once flags have been parsed.
type app struct {
	configFile string
	settings   *config.Settings
	store      memory.Store
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "zentry",
		Short:         "Call language models with long-term memory",
		Long:          longRoot,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (yaml, toml or json)")
	flags.String("log_level", "", "log level: debug, info, warn or error")
	flags.String("provider", "", "provider: openai, anthropic, cohere, groq or google")
	flags.String("model", "", "vendor model id, defaults to the provider default")
	flags.String("base_url", "", "override the provider endpoint")
	flags.String("store", "", "memory store: hosted or local")
	flags.String("store_path", "", "directory for the local store, in memory when empty")
	flags.String("embedder", "", "embedder for the local store: hash or openai")
	flags.String("memory.user_id", "", "memory scope user id")
	flags.String("memory.agent_id", "", "memory scope agent id")
	flags.String("memory.run_id", "", "memory scope run id")
	flags.String("memory.app_id", "", "memory scope app id")
	flags.Int("memory.top_k", memory.DefaultTopK, "maximum number of memories to retrieve")
	flags.Bool("memory.enable_graph", false, "include graph relations")

	root.AddCommand(
		newGenerateCmd(a),
		newStreamCmd(a),
		newMemoriesCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	settings, err := config.Load(a.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	setLogLevel(settings.SlogLevel())

	store, err := settings.OpenStore()
	if err != nil {
		return err
	}
	a.settings = settings
	a.store = store
	return nil
}

func userPrompt(system string, args []string) messages.Prompt {
	var prompt messages.Prompt
	if system != "" {
		prompt = append(prompt, messages.System(system))
	}
	return append(prompt, messages.User(messages.Text(strings.Join(args, " "))))
}

var longRoot = `
zentry searches a memory store with your prompt, prepends the memories it finds
as a system message and forwards the call to the configured provider. The
conversation is written back to the store so later calls can recall it.

Settings are read from the config file, ZENTRY_ environment variables and
flags, in that order. ZENTRY_MEMORY_USER_ID sets memory.user_id.
`
