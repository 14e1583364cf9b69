package domains

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	ContentFreeformText = "freeform_text"
	ContentRichText     = "rich_text"
	ContentAttachment   = "attachment"
	// ContentQuarantined marks stored content whose shape is not one of the known kinds.
	ContentQuarantined = "quarantined"
)

var (
	ErrContentEmpty       = errors.New("content is empty")
	ErrContentUnknownKind = errors.New("content kind is not supported")
	ErrContentInvalid     = errors.New("content is invalid")
)

// SectionContent is the body of a submitted report. Exactly the fields of Kind are set.
type SectionContent struct {
	Kind     string          `json:"kind"`
	Text     string          `json:"text,omitempty"`
	HTML     string          `json:"html,omitempty"`
	URL      string          `json:"url,omitempty"`
	FileName string          `json:"file_name,omitempty"`
	MimeType string          `json:"mime_type,omitempty"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

type freeformText struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

type richText struct {
	Kind string `json:"kind"`
	HTML string `json:"html"`
}

type attachment struct {
	Kind     string `json:"kind"`
	URL      string `json:"url"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
}

// ParseSectionContent decodes a submitted payload into one of the known content shapes.
// A payload without a kind but with a text field is treated as freeform text.
func ParseSectionContent(raw json.RawMessage) (SectionContent, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return SectionContent{}, ErrContentEmpty
	}

	var probe struct {
		Kind *string `json:"kind"`
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return SectionContent{}, fmt.Errorf("%w: %v", ErrContentInvalid, err)
	}

	kind := ""
	if probe.Kind != nil {
		kind = *probe.Kind
	} else if probe.Text != nil {
		kind = ContentFreeformText
	}

	switch kind {
	case ContentFreeformText:
		var v freeformText
		if err := decodeStrict(raw, &v); err != nil {
			return SectionContent{}, err
		}
		if strings.TrimSpace(v.Text) == "" {
			return SectionContent{}, ErrContentEmpty
		}
		return SectionContent{Kind: ContentFreeformText, Text: v.Text}, nil
	case ContentRichText:
		var v richText
		if err := decodeStrict(raw, &v); err != nil {
			return SectionContent{}, err
		}
		if strings.TrimSpace(v.HTML) == "" {
			return SectionContent{}, ErrContentEmpty
		}
		return SectionContent{Kind: ContentRichText, HTML: v.HTML}, nil
	case ContentAttachment:
		var v attachment
		if err := decodeStrict(raw, &v); err != nil {
			return SectionContent{}, err
		}
		u, err := url.Parse(v.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return SectionContent{}, fmt.Errorf("%w: attachment url must be absolute", ErrContentInvalid)
		}
		if strings.TrimSpace(v.FileName) == "" {
			return SectionContent{}, fmt.Errorf("%w: attachment file_name is required", ErrContentInvalid)
		}
		return SectionContent{Kind: ContentAttachment, URL: v.URL, FileName: v.FileName, MimeType: v.MimeType}, nil
	default:
		return SectionContent{}, fmt.Errorf("%w: %q", ErrContentUnknownKind, kind)
	}
}

// DecodeStoredContent reads content persisted earlier. Rows that no longer parse are returned
// quarantined with their raw bytes instead of failing the whole read.
func DecodeStoredContent(raw []byte) SectionContent {
	content, err := ParseSectionContent(raw)
	if err != nil {
		data := make(json.RawMessage, len(raw))
		copy(data, raw)
		return SectionContent{Kind: ContentQuarantined, Raw: data}
	}
	return content
}

// Canonical is the stored form of the content, used for persistence and digests.
func (c SectionContent) Canonical() ([]byte, error) {
	if c.Kind == ContentQuarantined {
		return nil, ErrContentUnknownKind
	}
	return json.Marshal(c)
}

func decodeStrict(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrContentInvalid, err)
	}
	return nil
}
