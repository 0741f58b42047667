package requests

// PresignQuery is the query string of GET /v1/presign.
type PresignQuery struct {
	Filename    string `form:"filename" binding:"required"`
	ContentType string `form:"contentType"`
}

// TagQuery is the query string of POST /v1/tag.
type TagQuery struct {
	Filename string `form:"filename" binding:"required"`
}
