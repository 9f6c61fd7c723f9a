package zentry

import (
	"fmt"

	"github.com/casualjim/zentry/memory"
	"github.com/casualjim/zentry/pkg/jsonx"
	"github.com/casualjim/zentry/pkg/uuidx"
	"github.com/casualjim/zentry/provider"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	// DefaultSourceURL is the URL attached to memory source annotations.
	DefaultSourceURL = "https://app.zentry.gg"

	aggregateTitle = "Zentry Memories"
	recordTitle    = "Memory"
)

var emptyJSON = []byte(`{}`)

// memorySources returns the aggregate annotation for all records followed by
// one annotation per record, in record order.
func memorySources(records []memory.Record, url string) ([]provider.Source, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if url == "" {
		url = DefaultSourceURL
	}

	aggregate, err := sourcePayload("memories", records, "memoriesText", memory.Text(records))
	if err != nil {
		return nil, fmt.Errorf("failed to build aggregate memory source: %w", err)
	}

	sources := make([]provider.Source, 0, len(records)+1)
	sources = append(sources, provider.Source{
		SourceType:       provider.SourceTypeURL,
		ID:               uuidx.Prefixed("zentry-"),
		Title:            aggregateTitle,
		URL:              url,
		ProviderMetadata: aggregate,
	})

	for i, rec := range records {
		payload, err := sourcePayload("memory", rec, "memoryText", rec.Memory)
		if err != nil {
			return nil, fmt.Errorf("failed to build source for memory %d: %w", i, err)
		}
		title := rec.Title
		if title == "" {
			title = recordTitle
		}
		sources = append(sources, provider.Source{
			SourceType:       provider.SourceTypeURL,
			ID:               uuidx.Prefixed("zentry-memory-"),
			Title:            title,
			URL:              url,
			ProviderMetadata: payload,
		})
	}
	return sources, nil
}

// sourcePayload builds {"zentry": {<key>: value, <textKey>: text}}.
func sourcePayload(key string, value any, textKey, text string) (gjson.Result, error) {
	raw, err := jsonx.ToResult(value)
	if err != nil {
		return gjson.Result{}, err
	}
	payload, err := sjson.SetRawBytes(emptyJSON, "zentry."+key, []byte(raw.Raw))
	if err != nil {
		return gjson.Result{}, err
	}
	if payload, err = sjson.SetBytes(payload, "zentry."+textKey, text); err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(payload), nil
}
