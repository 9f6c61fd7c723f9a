package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSearchResult(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    SearchResult
		wantErr bool
	}{
		{
			name:  "v1.0 array",
			input: `[{"id":"m1","memory":"likes SUVs","score":0.9,"categories":["cars"]}]`,
			want: SearchResult{Results: []Record{
				{ID: "m1", Memory: "likes SUVs", Score: 0.9, Categories: []string{"cars"}},
			}},
		},
		{
			name:  "v1.1 object",
			input: `{"results":[{"id":"m1","memory":"likes SUVs","metadata":{"source":"chat"}}]}`,
			want: SearchResult{Results: []Record{
				{ID: "m1", Memory: "likes SUVs", Metadata: map[string]any{"source": "chat"}},
			}},
		},
		{
			name:  "v1.1 with relations",
			input: `{"results":[],"relations":[{"source":"user","relationship":"prefers","target":"SUV"}]}`,
			want: SearchResult{
				Results:   []Record{},
				Relations: []Relation{{Source: "user", Relationship: "prefers", Target: "SUV"}},
			},
		},
		{
			name:  "empty array",
			input: `[]`,
			want:  SearchResult{Results: []Record{}},
		},
		{name: "not json", input: `{nope`, wantErr: true},
		{name: "scalar", input: `"memories"`, wantErr: true},
		{name: "results not array", input: `{"results":{"id":"m1"}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSearchResult([]byte(tt.input))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedResult)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRelation_String(t *testing.T) {
	assert.Equal(t, "user -> prefers -> SUV", Relation{Source: "user", Relationship: "prefers", Target: "SUV"}.String())
}

func TestConfig(t *testing.T) {
	threshold := 1.5
	err := Config{TopK: -1, Threshold: &threshold, OutputFormat: "v2"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_id")
	assert.Contains(t, err.Error(), "top_k")
	assert.Contains(t, err.Error(), "threshold")
	assert.Contains(t, err.Error(), "output_format")

	assert.NoError(t, Config{Scope: Scope{UserID: "alice"}}.Validate())
	assert.Equal(t, DefaultTopK, Config{}.Limit())
	assert.Equal(t, 3, Config{TopK: 3}.Limit())
	assert.Equal(t, OutputFormatV11, Config{}.Format())
	assert.Equal(t, OutputFormatV1, Config{OutputFormat: OutputFormatV1}.Format())
	assert.Equal(t, OutputFormatV11, Config{OutputFormat: OutputFormatV1, EnableGraph: true}.Format())
}
