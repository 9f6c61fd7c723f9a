package provider

import (
	"errors"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	textDeltaJSON = []byte(`{"type":"text-delta"}`)
	toolCallJSON  = []byte(`{"type":"tool-call"}`)
	sourceEvJSON  = []byte(`{"type":"source"}`)
	finishJSON    = []byte(`{"type":"finish"}`)
	errorJSON     = []byte(`{"type":"error"}`)
)

// StreamEvent is implemented by every event a stream can emit.
type StreamEvent interface {
	streamEvent()
}

// TextDelta is an incremental piece of generated text.
type TextDelta struct {
	RunID     uuid.UUID       `json:"run_id"`
	Text      string          `json:"text"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (TextDelta) streamEvent() {}

// ToolCallEvent carries a complete tool invocation requested by the model.
type ToolCallEvent struct {
	RunID     uuid.UUID       `json:"run_id"`
	ToolCall  ToolCall        `json:"tool_call"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (ToolCallEvent) streamEvent() {}

// SourceEvent announces a provenance annotation.
type SourceEvent struct {
	RunID     uuid.UUID       `json:"run_id"`
	Source    Source          `json:"source"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (SourceEvent) streamEvent() {}

// Finish is the last event of a successful stream.
type Finish struct {
	RunID     uuid.UUID       `json:"run_id"`
	Reason    FinishReason    `json:"finish_reason"`
	Usage     Usage           `json:"usage"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Finish) streamEvent() {}

// Error reports a failure that happened after the stream started.
type Error struct {
	RunID     uuid.UUID       `json:"run_id"`
	Err       error           `json:"error"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Error) streamEvent() {}

func (e Error) Error() string {
	return fmt.Sprintf("run_id: %s, timestamp: %s, error: %v", e.RunID, e.Timestamp, e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}

func setHeader(tmpl []byte, runID uuid.UUID, ts strfmt.DateTime) ([]byte, error) {
	result, err := sjson.SetBytes(tmpl, "run_id", runID.String())
	if err != nil {
		return nil, err
	}
	if !ts.IsZero() {
		if result, err = sjson.SetBytes(result, "timestamp", ts.String()); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func parseHeader(data []byte, tpe string) (uuid.UUID, strfmt.DateTime, error) {
	var ts strfmt.DateTime
	if !gjson.ValidBytes(data) {
		return uuid.Nil, ts, fmt.Errorf("invalid json: %s", data)
	}
	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() || msgType.String() != tpe {
		return uuid.Nil, ts, fmt.Errorf("missing or invalid type, expected '%s'", tpe)
	}

	var runID uuid.UUID
	if rid := gjson.GetBytes(data, "run_id"); rid.Exists() {
		if err := runID.UnmarshalText([]byte(rid.String())); err != nil {
			return uuid.Nil, ts, fmt.Errorf("invalid run_id: %w", err)
		}
	}
	if tsv := gjson.GetBytes(data, "timestamp"); tsv.Exists() {
		parsed, err := strfmt.ParseDateTime(tsv.String())
		if err != nil {
			return uuid.Nil, ts, fmt.Errorf("invalid timestamp: %w", err)
		}
		ts = parsed
	}
	return runID, ts, nil
}

// MarshalJSON implements custom JSON marshaling for TextDelta
func (t TextDelta) MarshalJSON() ([]byte, error) {
	result, err := setHeader(textDeltaJSON, t.RunID, t.Timestamp)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(result, "text", t.Text)
}

// UnmarshalJSON implements custom JSON unmarshaling for TextDelta
func (t *TextDelta) UnmarshalJSON(data []byte) error {
	runID, ts, err := parseHeader(data, "text-delta")
	if err != nil {
		return err
	}
	text := gjson.GetBytes(data, "text")
	if !text.Exists() {
		return errors.New("missing required field 'text'")
	}
	t.RunID, t.Timestamp, t.Text = runID, ts, text.String()
	return nil
}

// MarshalJSON implements custom JSON marshaling for ToolCallEvent
func (t ToolCallEvent) MarshalJSON() ([]byte, error) {
	result, err := setHeader(toolCallJSON, t.RunID, t.Timestamp)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(result, "tool_call", t.ToolCall)
}

// UnmarshalJSON implements custom JSON unmarshaling for ToolCallEvent
func (t *ToolCallEvent) UnmarshalJSON(data []byte) error {
	runID, ts, err := parseHeader(data, "tool-call")
	if err != nil {
		return err
	}
	tc := gjson.GetBytes(data, "tool_call")
	if !tc.Exists() {
		return errors.New("missing required field 'tool_call'")
	}
	t.RunID, t.Timestamp = runID, ts
	t.ToolCall = ToolCall{
		ID:        tc.Get("id").String(),
		Name:      tc.Get("name").String(),
		Arguments: tc.Get("arguments").String(),
	}
	return nil
}

// MarshalJSON implements custom JSON marshaling for SourceEvent
func (s SourceEvent) MarshalJSON() ([]byte, error) {
	result, err := setHeader(sourceEvJSON, s.RunID, s.Timestamp)
	if err != nil {
		return nil, err
	}
	src, err := s.Source.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal source: %w", err)
	}
	return sjson.SetRawBytes(result, "source", src)
}

// UnmarshalJSON implements custom JSON unmarshaling for SourceEvent
func (s *SourceEvent) UnmarshalJSON(data []byte) error {
	runID, ts, err := parseHeader(data, "source")
	if err != nil {
		return err
	}
	src := gjson.GetBytes(data, "source")
	if !src.Exists() {
		return errors.New("missing required field 'source'")
	}
	if err := s.Source.UnmarshalJSON([]byte(src.Raw)); err != nil {
		return fmt.Errorf("invalid source: %w", err)
	}
	s.RunID, s.Timestamp = runID, ts
	return nil
}

// MarshalJSON implements custom JSON marshaling for Finish
func (f Finish) MarshalJSON() ([]byte, error) {
	result, err := setHeader(finishJSON, f.RunID, f.Timestamp)
	if err != nil {
		return nil, err
	}
	if result, err = sjson.SetBytes(result, "finish_reason", string(f.Reason)); err != nil {
		return nil, err
	}
	if result, err = sjson.SetBytes(result, "usage.input_tokens", f.Usage.InputTokens); err != nil {
		return nil, err
	}
	return sjson.SetBytes(result, "usage.output_tokens", f.Usage.OutputTokens)
}

// UnmarshalJSON implements custom JSON unmarshaling for Finish
func (f *Finish) UnmarshalJSON(data []byte) error {
	runID, ts, err := parseHeader(data, "finish")
	if err != nil {
		return err
	}
	f.RunID, f.Timestamp = runID, ts
	f.Reason = FinishReason(gjson.GetBytes(data, "finish_reason").String())
	f.Usage = Usage{
		InputTokens:  gjson.GetBytes(data, "usage.input_tokens").Int(),
		OutputTokens: gjson.GetBytes(data, "usage.output_tokens").Int(),
	}
	return nil
}

// MarshalJSON implements custom JSON marshaling for Error
func (e Error) MarshalJSON() ([]byte, error) {
	result, err := setHeader(errorJSON, e.RunID, e.Timestamp)
	if err != nil {
		return nil, err
	}
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return sjson.SetBytes(result, "error", msg)
}

// UnmarshalJSON implements custom JSON unmarshaling for Error
func (e *Error) UnmarshalJSON(data []byte) error {
	runID, ts, err := parseHeader(data, "error")
	if err != nil {
		return err
	}
	msg := gjson.GetBytes(data, "error")
	if !msg.Exists() {
		return errors.New("missing required field 'error'")
	}
	e.RunID, e.Timestamp = runID, ts
	e.Err = errors.New(msg.String())
	return nil
}

// DecodeEvent decodes a JSON encoded event using its "type" marker.
func DecodeEvent(data []byte) (StreamEvent, error) {
	switch tpe := gjson.GetBytes(data, "type").String(); tpe {
	case "text-delta":
		var ev TextDelta
		if err := ev.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return ev, nil
	case "tool-call":
		var ev ToolCallEvent
		if err := ev.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return ev, nil
	case "source":
		var ev SourceEvent
		if err := ev.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return ev, nil
	case "finish":
		var ev Finish
		if err := ev.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return ev, nil
	case "error":
		var ev Error
		if err := ev.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", tpe)
	}
}
