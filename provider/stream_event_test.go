package provider

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestTextDelta_MarshalJSON(t *testing.T) {
	runID := uuid.New()
	timestamp := strfmt.DateTime(time.Now().UTC().Truncate(time.Millisecond))

	data, err := json.Marshal(TextDelta{RunID: runID, Text: "Hel", Timestamp: timestamp})
	require.NoError(t, err)

	result := gjson.ParseBytes(data)
	assert.Equal(t, "text-delta", result.Get("type").String())
	assert.Equal(t, runID.String(), result.Get("run_id").String())
	assert.Equal(t, "Hel", result.Get("text").String())
	assert.Equal(t, timestamp.String(), result.Get("timestamp").String())
}

func TestSourceEvent_MarshalJSON(t *testing.T) {
	runID := uuid.New()
	ev := SourceEvent{
		RunID: runID,
		Source: Source{
			SourceType:       SourceTypeURL,
			ID:               "zentry-1",
			Title:            "Zentry Memories",
			URL:              "https://app.zentry.gg",
			ProviderMetadata: gjson.Parse(`{"zentry":{"memoriesText":"likes SUVs"}}`),
		},
	}

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	result := gjson.ParseBytes(data)
	assert.Equal(t, "source", result.Get("type").String())
	assert.Equal(t, "url", result.Get("source.source_type").String())
	assert.Equal(t, "zentry-1", result.Get("source.id").String())
	assert.Equal(t, "likes SUVs", result.Get("source.provider_metadata.zentry.memoriesText").String())
	assert.False(t, result.Get("timestamp").Exists())
}

func TestDecodeEvent(t *testing.T) {
	runID := uuid.New()
	timestamp := strfmt.DateTime(time.Now().UTC().Truncate(time.Millisecond))

	tests := []struct {
		name  string
		event StreamEvent
	}{
		{
			name:  "text delta",
			event: TextDelta{RunID: runID, Text: "hello", Timestamp: timestamp},
		},
		{
			name: "tool call",
			event: ToolCallEvent{
				RunID:     runID,
				ToolCall:  ToolCall{ID: "call_1", Name: "weather", Arguments: `{"city":"Paris"}`},
				Timestamp: timestamp,
			},
		},
		{
			name: "source",
			event: SourceEvent{
				RunID:     runID,
				Source:    Source{SourceType: SourceTypeURL, ID: "zentry-memory-1", Title: "Memory", URL: "https://app.zentry.gg"},
				Timestamp: timestamp,
			},
		},
		{
			name:  "finish",
			event: Finish{RunID: runID, Reason: FinishStop, Usage: Usage{InputTokens: 3, OutputTokens: 5}, Timestamp: timestamp},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			require.NoError(t, err)

			got, err := DecodeEvent(data)
			require.NoError(t, err)
			assert.Equal(t, tt.event, got)
		})
	}
}

func TestDecodeEvent_Error(t *testing.T) {
	runID := uuid.New()
	data, err := json.Marshal(Error{RunID: runID, Err: errors.New("boom")})
	require.NoError(t, err)

	got, err := DecodeEvent(data)
	require.NoError(t, err)
	ev, ok := got.(Error)
	require.True(t, ok)
	assert.Equal(t, runID, ev.RunID)
	assert.EqualError(t, ev.Err, "boom")
}

func TestDecodeEvent_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "unknown type", input: `{"type":"delim"}`, wantErr: `unknown event type "delim"`},
		{name: "missing text", input: `{"type":"text-delta"}`, wantErr: "missing required field 'text'"},
		{name: "bad run id", input: `{"type":"text-delta","run_id":"nope","text":"x"}`, wantErr: "invalid run_id"},
		{name: "source without id", input: `{"type":"source","source":{"title":"x"}}`, wantErr: "invalid source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEvent([]byte(tt.input))
			require.Error(t, err)
			assert.Nil(t, got)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	ev := Error{Err: ErrStreamConsumed}
	assert.ErrorIs(t, ev, ErrStreamConsumed)
	assert.Contains(t, ev.Error(), "stream already consumed")
}
