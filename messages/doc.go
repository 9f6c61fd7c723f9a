// Package messages provides the prompt model shared by the memory augmenter and
// every provider: a Prompt is an ordered list of role-tagged messages, and each
// message carries an ordered list of content parts.
//
// Design decisions:
//   - Pure transforms: Prompt methods never mutate the receiver, so a caller's
//     prompt and the augmented prompt handed to a provider never alias
//   - Closed part set: text, image, tool-call and tool-result parts cover what
//     the supported providers accept
//   - JSON interop: parts serialize with a "type" discriminator so prompts can be
//     loaded from files and sent to the memory store
//   - Keyed initialization: struct{} padding prevents unkeyed literals
//
// Example usage:
//
//	prompt := messages.Prompt{
//	    messages.System("You are a helpful assistant"),
//	    messages.User(messages.Text("Suggest me a good car to buy.")),
//	}
//
//	augmented := prompt.Prepend(messages.System("Memory: likes SUVs"))
//	// prompt still has two messages, augmented has three
package messages
