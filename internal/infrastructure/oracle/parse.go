package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/janhq/image-upload/internal/domain/upload"
)

// LegacyTagKey names the single tag reported by servers that answer {"tag": "..."}.
const LegacyTagKey = "ImageTag"

// tagResponse is the wire shape of a tag query answer. Every field is optional.
type tagResponse struct {
	Duplicate   bool               `json:"duplicate"`
	HasTags     *bool              `json:"hasTags"`
	Tags        []upload.TagRecord `json:"tags"`
	OriginalKey string             `json:"originalKey"`
	Tag         string             `json:"tag"`
	FilePath    string             `json:"filePath"`
}

// Parse converts a response body into an OracleResult. Only a body that is not a JSON
// object is an error; the caller maps that to Unavailable.
func Parse(body []byte) (upload.OracleResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return upload.Unavailable(), fmt.Errorf("tag response is not a JSON object")
	}
	var resp tagResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return upload.Unavailable(), fmt.Errorf("decode tag response: %w", err)
	}

	tags := cleanTags(resp.Tags)
	if resp.Duplicate {
		// A listed tag set decides. Without one, hasTags still marks the original as tagged.
		if len(tags) == 0 && resp.HasTags != nil && *resp.HasTags {
			return upload.DuplicateTaggedUnlisted(resp.OriginalKey), nil
		}
		return upload.Duplicate(resp.OriginalKey, tags), nil
	}
	if len(tags) > 0 {
		return upload.Tagged(tags), nil
	}
	if tag := strings.TrimSpace(resp.Tag); tag != "" {
		return upload.Tagged([]upload.TagRecord{{Key: LegacyTagKey, Value: tag}}), nil
	}
	return upload.TagPending(), nil
}

func cleanTags(in []upload.TagRecord) []upload.TagRecord {
	out := make([]upload.TagRecord, 0, len(in))
	for _, t := range in {
		if strings.TrimSpace(t.Key) == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}
