/*
Package openai implements provider.Capability for OpenAI's chat completions API.
The same implementation serves Groq through its OpenAI compatible endpoint.

# Design Decisions

  - Lazy streaming: the HTTP request is made when the event sequence is ranged over
  - Accumulated tool calls: tool calls are emitted once complete, after the text deltas
  - Thread Safe: a Provider can be shared across goroutines
  - Pure construction: New and NewGroq only configure the SDK client

# Credentials

New reads OPENAI_API_KEY when provider.Config.APIKey is empty, NewGroq reads
GROQ_API_KEY and defaults the base URL to GroqBaseURL.

	p := openai.New(provider.Config{APIKey: os.Getenv("OPENAI_API_KEY")})
	resp, err := p.Generate(ctx, provider.CallOptions{
		Model:  "gpt-4o-mini",
		Prompt: messages.Prompt{messages.User(messages.Text("Hi"))},
	})

# Message Mapping

  - system messages become system messages
  - user text and image parts become content parts
  - assistant tool-call parts become assistant tool calls
  - tool-result parts become one tool message each

Options that the API doesn't support, like top_k, are reported as warnings on
the response instead of failing the call.
*/
package openai
