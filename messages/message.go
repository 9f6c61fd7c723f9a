package messages

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Role identifies the author of a message in a prompt.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

func (r Role) String() string { return string(r) }

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

// Message is a single role-tagged entry in a prompt.
type Message struct {
	Role    Role          `json:"role"`
	Content []ContentPart `json:"content"`
	_       struct{}      // require keyed usage
}

// System creates a system message with a single text part.
func System(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentPart{Text(text)}}
}

// User creates a user message from the given parts.
func User(parts ...ContentPart) Message {
	return Message{Role: RoleUser, Content: parts}
}

// Assistant creates an assistant message from the given parts.
func Assistant(parts ...ContentPart) Message {
	return Message{Role: RoleAssistant, Content: parts}
}

// Tool creates a tool message carrying tool results.
func Tool(results ...ToolResultContentPart) Message {
	parts := make([]ContentPart, len(results))
	for i, r := range results {
		parts[i] = r
	}
	return Message{Role: RoleTool, Content: parts}
}

// Text returns the concatenated text parts of the message.
func (m Message) Text() string {
	var sb strings.Builder
	for _, part := range m.Content {
		if tp, ok := part.(TextContentPart); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}

// Clone returns a copy of the message with its own content slice.
func (m Message) Clone() Message {
	return Message{Role: m.Role, Content: slices.Clone(m.Content)}
}

var msgJSON = []byte(`{}`)

// MarshalJSON serializes the message. Content is always an array of parts.
func (m Message) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(msgJSON, "role", string(m.Role))
	if err != nil {
		return nil, err
	}
	if result, err = sjson.SetRawBytes(result, "content", []byte("[]")); err != nil {
		return nil, err
	}
	for _, part := range m.Content {
		if result, err = sjson.SetBytes(result, "content.-1", part); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UnmarshalJSON accepts content either as a plain string or as an array of parts.
func (m *Message) UnmarshalJSON(input []byte) error {
	if !gjson.ValidBytes(input) {
		return errors.New("invalid json")
	}
	role := Role(gjson.GetBytes(input, "role").String())
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}

	content := gjson.GetBytes(input, "content")
	var parts []ContentPart
	switch {
	case !content.Exists():
		return errors.New("missing required field 'content'")
	case content.Type == gjson.String:
		parts = []ContentPart{Text(content.String())}
	case content.IsArray():
		var perr error
		content.ForEach(func(_, value gjson.Result) bool {
			part, err := decodePart(value)
			if err != nil {
				perr = err
				return false
			}
			parts = append(parts, part)
			return true
		})
		if perr != nil {
			return perr
		}
	default:
		return errors.New("content must be a string or an array")
	}

	m.Role = role
	m.Content = parts
	return nil
}

// Prompt is an ordered conversation handed to a model.
type Prompt []Message

// Clone returns a deep copy of the prompt down to the content slices.
func (p Prompt) Clone() Prompt {
	if p == nil {
		return nil
	}
	out := make(Prompt, len(p))
	for i, m := range p {
		out[i] = m.Clone()
	}
	return out
}

// Prepend returns a new prompt with msg at index 0 followed by a copy of p.
// The result shares no content slices with the receiver.
func (p Prompt) Prepend(msg Message) Prompt {
	out := make(Prompt, 0, len(p)+1)
	out = append(out, msg.Clone())
	return append(out, p.Clone()...)
}

// UserText joins the text of all user messages with a single space.
func (p Prompt) UserText() string {
	return p.textFor(RoleUser, " ")
}

// SystemText joins the text of all system messages with a blank line.
func (p Prompt) SystemText() string {
	return p.textFor(RoleSystem, "\n\n")
}

// WithoutSystem returns the prompt minus its system messages. Providers that
// take the system prompt as a separate parameter use this together with SystemText.
func (p Prompt) WithoutSystem() Prompt {
	out := make(Prompt, 0, len(p))
	for _, m := range p {
		if m.Role != RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

func (p Prompt) textFor(role Role, sep string) string {
	var texts []string
	for _, m := range p {
		if m.Role != role {
			continue
		}
		if t := m.Text(); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, sep)
}
