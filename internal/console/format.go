// Package console prints zentry responses to a terminal.
package console

import (
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/casualjim/zentry/provider"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
)

// Markdown renders text for a terminal. Rendering falls back to the raw text
// when the renderer can't be created.
func Markdown(text string, width int) string {
	options := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		options = append(options, glamour.WithWordWrap(width))
	}
	glam, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return text
	}
	out, err := glam.Render(text)
	if err != nil {
		return text
	}
	return out
}

// Source formats a source annotation on one line.
func Source(src provider.Source) string {
	title := src.Title
	if title == "" {
		title = src.ID
	}
	return fmt.Sprintf("%s %s (%s)", color.CyanString("Source:"), title, src.ID)
}

// ToolCall formats a tool call as name(arguments).
func ToolCall(tc provider.ToolCall) string {
	args := strings.ReplaceAll(tc.Arguments, ": ", "=")
	return color.YellowString(tc.Name) + args
}

// PrintResponse writes a completed response: its sources, tool calls and the
// rendered text.
func PrintResponse(w io.Writer, resp *provider.Response, width int) {
	for _, src := range resp.Sources {
		fmt.Fprintln(w, Source(src))
	}
	for _, tc := range resp.ToolCalls {
		fmt.Fprintln(w, ToolCall(tc))
	}
	if resp.Text != "" {
		fmt.Fprint(w, color.MagentaString("Assistant")+": ")
		fmt.Fprint(w, Markdown(resp.Text, width))
	}
	for _, warning := range resp.Warnings {
		fmt.Fprintln(w, color.YellowString("Warning:"), warning)
	}
}

// PrintStream writes events as they arrive and returns the first stream error.
func PrintStream(w io.Writer, events iter.Seq[provider.StreamEvent]) (provider.Usage, error) {
	var streaming bool
	var usage provider.Usage
	for event := range events {
		switch e := event.(type) {
		case provider.SourceEvent:
			fmt.Fprintln(w, Source(e.Source))
		case provider.TextDelta:
			if !streaming {
				streaming = true
				fmt.Fprint(w, color.MagentaString("Assistant")+": ")
			}
			fmt.Fprint(w, e.Text)
		case provider.ToolCallEvent:
			if streaming {
				streaming = false
				fmt.Fprintln(w)
			}
			fmt.Fprintln(w, ToolCall(e.ToolCall))
		case provider.Finish:
			if streaming {
				fmt.Fprintln(w)
			}
			usage = e.Usage
		case provider.Error:
			if streaming {
				fmt.Fprintln(w)
			}
			return usage, e
		}
	}
	return usage, nil
}
