package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/casualjim/zentry"
	"github.com/casualjim/zentry/internal/console"
	"github.com/casualjim/zentry/memory"
	"github.com/casualjim/zentry/pkg/slogx"
	"github.com/spf13/cobra"
)

type callFlags struct {
	system      string
	maxTokens   int64
	temperature float64
	width       int
}

func (f *callFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.system, "system", "", "system message sent before the prompt")
	cmd.Flags().Int64Var(&f.maxTokens, "max-tokens", 0, "maximum number of tokens to generate")
	cmd.Flags().Float64Var(&f.temperature, "temperature", -1, "sampling temperature, provider default when negative")
	cmd.Flags().IntVar(&f.width, "width", 100, "word wrap width for rendered output")
}

func (f *callFlags) options(args []string) zentry.CallOptions {
	var options zentry.CallOptions
	options.Prompt = userPrompt(f.system, args)
	options.MaxTokens = f.maxTokens
	if f.temperature >= 0 {
		temperature := f.temperature
		options.Temperature = &temperature
	}
	return options
}

const flushTimeout = 10 * time.Second

func (a *app) model() (*zentry.Model, error) {
	return zentry.New(a.settings.ModelOptions(a.store)...)
}

// flushMemories waits for the background memory write of the call so it is
// not lost when the process exits.
func flushMemories(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()
	if err := memory.Flush(ctx); err != nil {
		slog.Warn("memory write did not finish before exit", slogx.Error(err))
	}
}

func newGenerateCmd(a *app) *cobra.Command {
	var flags callFlags
	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate a complete response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := a.model()
			if err != nil {
				return err
			}
			defer flushMemories(cmd.Context())
			resp, err := model.Generate(cmd.Context(), flags.options(args))
			if err != nil {
				return err
			}
			console.PrintResponse(cmd.OutOrStdout(), resp, flags.width)
			slog.Debug("generation complete",
				slogx.Provider(model.ProviderID()),
				slog.String("finish_reason", string(resp.FinishReason)),
				slog.Int64("tokens", resp.Usage.TotalTokens()),
			)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newStreamCmd(a *app) *cobra.Command {
	var flags callFlags
	cmd := &cobra.Command{
		Use:   "stream <prompt>",
		Short: "Stream a response as it is generated",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := a.model()
			if err != nil {
				return err
			}
			defer flushMemories(cmd.Context())
			resp, err := model.Stream(cmd.Context(), flags.options(args))
			if err != nil {
				return err
			}
			for _, warning := range resp.Warnings {
				slog.Warn(warning, slogx.Provider(model.ProviderID()))
			}
			usage, err := console.PrintStream(cmd.OutOrStdout(), resp.Events)
			if err != nil {
				return fmt.Errorf("stream failed: %w", err)
			}
			slog.Debug("stream complete",
				slogx.Provider(model.ProviderID()),
				slog.Int64("tokens", usage.TotalTokens()),
			)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
