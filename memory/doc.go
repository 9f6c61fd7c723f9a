// Package memory recalls stored facts about a user or agent and injects them
// into a prompt.
//
// The Store interface is the only dependency. The hosted sub-package talks to
// the hosted memory API and the chromem sub-package keeps memories in an
// embedded vector database.
//
//	aug := memory.Augment(ctx, store, prompt, memory.Config{
//		Scope: memory.Scope{UserID: "alice"},
//	})
//	// aug.Prompt has a system message with the memories at index 0 when
//	// aug.Records is non-empty.
//
// Memory failures are logged and swallowed: a store outage produces the
// original prompt, never an error.
package memory
