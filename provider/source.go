package provider

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// SourceTypeURL is the only source type produced by this module.
const SourceTypeURL = "url"

// Source records where a piece of context injected into a call came from.
type Source struct {
	SourceType       string       `json:"source_type"`
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	URL              string       `json:"url"`
	ProviderMetadata gjson.Result `json:"provider_metadata,omitempty"`
}

var sourceJSON = []byte(`{}`)

// MarshalJSON implements custom JSON marshaling for Source
func (s Source) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(sourceJSON, "source_type", s.SourceType)
	if err != nil {
		return nil, err
	}
	if result, err = sjson.SetBytes(result, "id", s.ID); err != nil {
		return nil, err
	}
	if result, err = sjson.SetBytes(result, "title", s.Title); err != nil {
		return nil, err
	}
	if result, err = sjson.SetBytes(result, "url", s.URL); err != nil {
		return nil, err
	}
	if s.ProviderMetadata.Exists() {
		if result, err = sjson.SetRawBytes(result, "provider_metadata", []byte(s.ProviderMetadata.Raw)); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UnmarshalJSON implements custom JSON unmarshaling for Source
func (s *Source) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}
	id := gjson.GetBytes(data, "id")
	if !id.Exists() {
		return errors.New("missing required field 'id'")
	}
	s.ID = id.String()
	s.SourceType = gjson.GetBytes(data, "source_type").String()
	s.Title = gjson.GetBytes(data, "title").String()
	s.URL = gjson.GetBytes(data, "url").String()
	s.ProviderMetadata = gjson.GetBytes(data, "provider_metadata")
	return nil
}
