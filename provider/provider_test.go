package provider

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	for _, id := range IDs() {
		got, err := ParseID(string(id))
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}

	for _, bad := range []string{"", "mistral", "OpenAI", " openai"} {
		t.Run("reject "+bad, func(t *testing.T) {
			_, err := ParseID(bad)
			require.Error(t, err)

			var upe *UnsupportedProviderError
			require.True(t, errors.As(err, &upe))
			assert.Equal(t, bad, upe.ID)
			assert.ErrorIs(t, err, ErrUnsupportedProvider)
		})
	}
}

func TestSingleUse(t *testing.T) {
	runID := uuid.New()
	seq := SingleUse(runID, Events(TextDelta{Text: "a"}, TextDelta{Text: "b"}))

	var first []StreamEvent
	for ev := range seq {
		first = append(first, ev)
	}
	assert.Equal(t, []StreamEvent{TextDelta{Text: "a"}, TextDelta{Text: "b"}}, first)

	var second []StreamEvent
	for ev := range seq {
		second = append(second, ev)
	}
	require.Len(t, second, 1)
	errEv, ok := second[0].(Error)
	require.True(t, ok)
	assert.Equal(t, runID, errEv.RunID)
	assert.ErrorIs(t, errEv.Err, ErrStreamConsumed)
}

func TestEvents_Break(t *testing.T) {
	var got []StreamEvent
	for ev := range Events(TextDelta{Text: "a"}, TextDelta{Text: "b"}, TextDelta{Text: "c"}) {
		got = append(got, ev)
		if len(got) == 2 {
			break
		}
	}
	assert.Len(t, got, 2)
}

func TestResponse_Clone(t *testing.T) {
	assert.Nil(t, (*Response)(nil).Clone())

	orig := &Response{Text: "hi", Sources: []Source{{ID: "s1"}}}
	cp := orig.Clone()
	cp.Sources = append(cp.Sources, Source{ID: "s2"})
	cp.Sources[0].ID = "changed"

	assert.Equal(t, []Source{{ID: "s1"}}, orig.Sources)
	assert.Equal(t, "hi", cp.Text)
}

type weatherArgs struct {
	City  string `json:"city" jsonschema:"description=The city to look up"`
	Units string `json:"units,omitempty" jsonschema:"enum=metric,enum=imperial"`
}

func TestToolFor(t *testing.T) {
	tool := ToolFor[weatherArgs]("weather", "Look up the weather")
	assert.Equal(t, "weather", tool.Name)
	require.NotNil(t, tool.Parameters)
	assert.Equal(t, "object", tool.Parameters.Type)
	assert.Equal(t, []string{"city"}, tool.Parameters.Required)

	params, err := tool.ParametersMap()
	require.NoError(t, err)
	assert.Equal(t, "object", params["type"])
	assert.Equal(t, false, params["additionalProperties"])

	props, err := tool.PropertiesMap()
	require.NoError(t, err)
	require.Equal(t, 2, props.Len())
	assert.Equal(t, "city", props.Oldest().Key)
	assert.Equal(t, "The city to look up", props.Oldest().Value["description"])
}

func TestTool_EmptyParameters(t *testing.T) {
	tool := Tool{Name: "ping"}
	params, err := tool.ParametersMap()
	require.NoError(t, err)
	assert.Equal(t, "object", params["type"])

	props, err := tool.PropertiesMap()
	require.NoError(t, err)
	assert.Equal(t, 0, props.Len())
}
