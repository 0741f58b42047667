package upload

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const defaultContentType = "application/octet-stream"

// ResolveContentType returns the declared type when set, otherwise sniffs the content.
// The result is always sent explicitly with the PUT; storage never infers it.
func ResolveContentType(req *Request) (string, error) {
	declared := strings.TrimSpace(req.MimeType)
	if declared != "" {
		if _, _, err := mime.ParseMediaType(declared); err != nil {
			return "", newError(ErrNoRequest, "invalid content type "+declared, err)
		}
		return declared, nil
	}
	if req.Content == nil {
		return defaultContentType, nil
	}
	rc, err := req.Content.Open()
	if err != nil {
		return "", newError(ErrNoRequest, "cannot read selected file", err)
	}
	defer rc.Close()

	detected, err := mimetype.DetectReader(rc)
	if err != nil || detected == nil {
		return defaultContentType, nil
	}
	// mimetype may append parameters (e.g. charset) for text types.
	mediaType, _, err := mime.ParseMediaType(detected.String())
	if err != nil {
		return defaultContentType, nil
	}
	return mediaType, nil
}
