package jsonx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToDynamicJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    map[string]interface{}
		wantErr bool
	}{
		{
			name: "simple struct",
			input: struct {
				Name string `json:"name"`
				Age  int    `json:"age"`
			}{
				Name: "test",
				Age:  30,
			},
			want: map[string]interface{}{
				"name": "test",
				"age":  float64(30),
			},
			wantErr: false,
		},
		{
			name:    "invalid input",
			input:   make(chan int),
			want:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToDynamicJSON(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToResult(t *testing.T) {
	res, err := ToResult(map[string]any{"memory": "likes SUVs", "score": 0.5})
	assert.NoError(t, err)
	assert.Equal(t, "likes SUVs", res.Get("memory").String())
	assert.InDelta(t, 0.5, res.Get("score").Float(), 0.0001)

	_, err = ToResult(make(chan int))
	assert.Error(t, err)
}
