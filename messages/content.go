package messages

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ContentPart is an interface that marks structs as valid content parts.
// Implementations include TextContentPart, ImageContentPart, ToolCallContentPart
// and ToolResultContentPart.
type ContentPart interface {
	contentPart()
}

// Text creates a new TextContentPart with the given text.
func Text(text string) TextContentPart {
	return TextContentPart{Text: text}
}

// TextContentPart represents a text-only content part.
type TextContentPart struct {
	Text string   `json:"text"`
	_    struct{} // require keyed usage
}

func (TextContentPart) contentPart() {}

var tcpJSON = []byte(`{"type":"text"}`)

// MarshalJSON serializes the text content with a "type":"text" field.
func (t TextContentPart) MarshalJSON() ([]byte, error) {
	return sjson.SetBytes(tcpJSON, "text", t.Text)
}

// UnmarshalJSON validates and extracts the required 'text' field from the JSON input.
func (t *TextContentPart) UnmarshalJSON(input []byte) error {
	text := gjson.GetBytes(input, "text")
	if !text.Exists() {
		return errors.New("missing required field 'text'")
	}
	t.Text = text.String()
	return nil
}

// Image creates a new ImageContentPart that references the image by URL.
func Image(url string) ImageContentPart {
	return ImageContentPart{URL: url}
}

// ImageData creates a new ImageContentPart carrying the raw image bytes inline.
func ImageData(data []byte, mediaType string) ImageContentPart {
	return ImageContentPart{Data: data, MediaType: mediaType}
}

// ImageContentPart represents an image, either by URL or inline bytes.
// Exactly one of URL or Data is expected to be set.
type ImageContentPart struct {
	URL       string   `json:"image_url,omitempty"`
	Data      []byte   `json:"-"`
	MediaType string   `json:"media_type,omitempty"`
	_         struct{} // require keyed usage
}

func (ImageContentPart) contentPart() {}

// DataURL renders the image as a URL, encoding inline bytes as a data URL.
func (i ImageContentPart) DataURL() string {
	if i.URL != "" {
		return i.URL
	}
	return fmt.Sprintf("data:%s;base64,%s", i.MediaType, base64.StdEncoding.EncodeToString(i.Data))
}

var icpJSON = []byte(`{"type":"image"}`)

// MarshalJSON serializes the image with a "type":"image" field. Inline bytes
// are base64 encoded into "data".
func (i ImageContentPart) MarshalJSON() ([]byte, error) {
	result := icpJSON
	var err error
	if i.URL != "" {
		if result, err = sjson.SetBytes(result, "image_url", i.URL); err != nil {
			return nil, err
		}
	}
	if len(i.Data) > 0 {
		if result, err = sjson.SetBytes(result, "data", base64.StdEncoding.EncodeToString(i.Data)); err != nil {
			return nil, err
		}
	}
	if i.MediaType != "" {
		if result, err = sjson.SetBytes(result, "media_type", i.MediaType); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UnmarshalJSON requires either 'image_url' or 'data' to be present.
func (i *ImageContentPart) UnmarshalJSON(input []byte) error {
	uri := gjson.GetBytes(input, "image_url")
	data := gjson.GetBytes(input, "data")
	if !uri.Exists() && !data.Exists() {
		return errors.New("missing required field 'image_url' or 'data'")
	}
	i.URL = uri.String()
	if data.Exists() {
		decoded, err := base64.StdEncoding.DecodeString(data.String())
		if err != nil {
			return fmt.Errorf("invalid base64 data: %w", err)
		}
		i.Data = decoded
	}
	i.MediaType = gjson.GetBytes(input, "media_type").String()
	return nil
}

// ToolCall creates a new ToolCallContentPart, used in assistant messages to
// replay a tool invocation the model made earlier in the conversation.
func ToolCall(id, name, arguments string) ToolCallContentPart {
	return ToolCallContentPart{ID: id, Name: name, Arguments: arguments}
}

// ToolCallContentPart represents a tool invocation requested by the model.
// Arguments holds the raw JSON arguments.
type ToolCallContentPart struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Arguments string   `json:"arguments"`
	_         struct{} // require keyed usage
}

func (ToolCallContentPart) contentPart() {}

var tccpJSON = []byte(`{"type":"tool-call"}`)

// MarshalJSON serializes the tool call with a "type":"tool-call" field.
func (t ToolCallContentPart) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(tccpJSON, "id", t.ID)
	if err != nil {
		return nil, err
	}
	if result, err = sjson.SetBytes(result, "name", t.Name); err != nil {
		return nil, err
	}
	return sjson.SetBytes(result, "arguments", t.Arguments)
}

// UnmarshalJSON validates and extracts the 'id', 'name' and 'arguments' fields.
func (t *ToolCallContentPart) UnmarshalJSON(input []byte) error {
	name := gjson.GetBytes(input, "name")
	if !name.Exists() {
		return errors.New("missing required field 'name'")
	}
	t.ID = gjson.GetBytes(input, "id").String()
	t.Name = name.String()
	t.Arguments = gjson.GetBytes(input, "arguments").String()
	return nil
}

// ToolResult creates a new ToolResultContentPart carrying the output of a tool call.
func ToolResult(toolCallID, name, result string, isError bool) ToolResultContentPart {
	return ToolResultContentPart{ToolCallID: toolCallID, Name: name, Result: result, IsError: isError}
}

// ToolResultContentPart represents the result of executing a tool call.
type ToolResultContentPart struct {
	ToolCallID string   `json:"tool_call_id"`
	Name       string   `json:"name"`
	Result     string   `json:"result"`
	IsError    bool     `json:"is_error,omitempty"`
	_          struct{} // require keyed usage
}

func (ToolResultContentPart) contentPart() {}

var trcpJSON = []byte(`{"type":"tool-result"}`)

// MarshalJSON serializes the tool result with a "type":"tool-result" field.
func (t ToolResultContentPart) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(trcpJSON, "tool_call_id", t.ToolCallID)
	if err != nil {
		return nil, err
	}
	if result, err = sjson.SetBytes(result, "name", t.Name); err != nil {
		return nil, err
	}
	if result, err = sjson.SetBytes(result, "result", t.Result); err != nil {
		return nil, err
	}
	if t.IsError {
		return sjson.SetBytes(result, "is_error", true)
	}
	return result, nil
}

// UnmarshalJSON validates and extracts the required 'tool_call_id' and 'result' fields.
func (t *ToolResultContentPart) UnmarshalJSON(input []byte) error {
	id := gjson.GetBytes(input, "tool_call_id")
	if !id.Exists() {
		return errors.New("missing required field 'tool_call_id'")
	}
	result := gjson.GetBytes(input, "result")
	if !result.Exists() {
		return errors.New("missing required field 'result'")
	}
	t.ToolCallID = id.String()
	t.Name = gjson.GetBytes(input, "name").String()
	t.Result = result.String()
	t.IsError = gjson.GetBytes(input, "is_error").Bool()
	return nil
}

// decodePart decodes a single JSON content part by its "type" discriminator.
func decodePart(jv gjson.Result) (ContentPart, error) {
	raw := []byte(jv.Raw)
	switch tpe := jv.Get("type").String(); tpe {
	case "text":
		var part TextContentPart
		if err := part.UnmarshalJSON(raw); err != nil {
			return nil, err
		}
		return part, nil
	case "image":
		var part ImageContentPart
		if err := part.UnmarshalJSON(raw); err != nil {
			return nil, err
		}
		return part, nil
	case "tool-call":
		var part ToolCallContentPart
		if err := part.UnmarshalJSON(raw); err != nil {
			return nil, err
		}
		return part, nil
	case "tool-result":
		var part ToolResultContentPart
		if err := part.UnmarshalJSON(raw); err != nil {
			return nil, err
		}
		return part, nil
	default:
		return nil, fmt.Errorf("unknown type %q", tpe)
	}
}
