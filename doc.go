/*
Package zentry adds long-term memory to language model calls.

Before each call the user messages of the prompt are used to search a memory
store. Matching memories are rendered into a system message that is
prepended to the prompt, and the conversation is written back to the store in
the background so later calls can recall it. The response carries source
annotations naming the memories that were used.

# Basic Usage

	store, err := hosted.New(hosted.WithAPIKey(os.Getenv("ZENTRY_API_KEY")))
	if err != nil {
		// Handle error
	}

	model, err := zentry.New(
		zentry.Provider("anthropic"),
		zentry.Store(store),
		zentry.Memory(memory.Config{Scope: memory.Scope{UserID: "alice"}}),
	)
	if err != nil {
		// Handle error
	}

	resp, err := model.Generate(ctx, zentry.CallOptions{
		CallOptions: provider.CallOptions{
			Prompt: messages.Prompt{messages.User(messages.Text("Suggest a car"))},
		},
	})

Streaming works the same way; the memory sources are emitted before the
first provider event:

	resp, err := model.Stream(ctx, opts)
	if err != nil {
		// Handle error
	}
	for ev := range resp.Events {
		switch ev := ev.(type) {
		case provider.SourceEvent:
		case provider.TextDelta:
			fmt.Print(ev.Text)
		case provider.Error:
			return ev
		}
	}

# Failure handling

Memory is best effort. A failing or slow store produces an un-augmented call,
never an error. Provider failures are always returned, wrapped in
*GenerationFailedError or *StreamFailedError. An unknown provider fails with
*provider.UnsupportedProviderError before the store is contacted.
*/
package zentry
