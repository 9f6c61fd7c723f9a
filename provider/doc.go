// Package provider implements an abstraction layer for interacting with LLM providers
// (OpenAI, Anthropic, Cohere, Groq, Google) in a consistent way. It defines the
// capability every vendor package implements, the normalized call options, and
// the event types that make up a streaming response.
//
// Design decisions:
//   - Closed provider set: providers are identified by the ID enum and dispatched
//     by a switch, never by inspecting the shape of a value
//   - Two operations: a Capability exposes Generate and Stream only
//   - Lazy streams: StreamResponse.Events is an iter.Seq, no request is made until
//     the sequence is ranged over and a consumer break closes the connection
//   - Errors in band: failures after the stream has started arrive as Error events
//   - Provenance: Source values describe where injected context came from
//
// The streaming architecture uses five event types:
//  1. TextDelta: incremental text from the model
//  2. ToolCallEvent: a complete tool invocation requested by the model
//  3. SourceEvent: a provenance annotation
//  4. Finish: end of the response with finish reason and usage
//  5. Error: a failure reported by the provider
//
// Example usage:
//
//	resp, err := capability.Stream(ctx, provider.CallOptions{
//	    Model:  "gpt-4o-mini",
//	    Prompt: messages.Prompt{messages.User(messages.Text("Hi"))},
//	})
//	if err != nil {
//	    return err
//	}
//
//	for event := range resp.Events {
//	    switch e := event.(type) {
//	    case provider.TextDelta:
//	        fmt.Print(e.Text)
//	    case provider.Error:
//	        return e.Err
//	    }
//	}
package provider
