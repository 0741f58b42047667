package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/image-upload/internal/domain/tagging"
	"github.com/janhq/image-upload/internal/domain/upload"
	"github.com/janhq/image-upload/internal/interfaces/httpserver/requests"
	"github.com/janhq/image-upload/internal/interfaces/httpserver/responses"
)

// TagService is the part of tagging.Service the handlers call.
type TagService interface {
	IssueCredential(ctx context.Context, filename, contentType string) (*tagging.Credential, error)
	QueryTag(ctx context.Context, filename string) (*tagging.TagAnswer, error)
}

// TagHandler exposes the presign and tag endpoints.
type TagHandler struct {
	service TagService
	log     zerolog.Logger
}

func NewTagHandler(service TagService, log zerolog.Logger) *TagHandler {
	return &TagHandler{
		service: service,
		log:     log.With().Str("component", "tag-handler").Logger(),
	}
}

// Presign issues a write credential for one filename.
func (h *TagHandler) Presign(c *gin.Context) {
	var q requests.PresignQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		responses.BadRequest(c, "filename is required")
		return
	}

	cred, err := h.service.IssueCredential(c.Request.Context(), q.Filename, q.ContentType)
	if err != nil {
		h.log.Warn().Err(err).Str("filename", q.Filename).Msg("presign failed")
		responses.HandleError(c, err, "failed to issue upload URL")
		return
	}

	c.JSON(http.StatusOK, responses.PresignResponse{
		PresignedURL: cred.URL,
		Key:          cred.Key,
		ContentType:  cred.ContentType,
		ExpiresAt:    cred.ExpiresAt,
	})
}

// Tag reports duplicate state or tags for one filename.
func (h *TagHandler) Tag(c *gin.Context) {
	var q requests.TagQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		responses.BadRequest(c, "filename is required")
		return
	}

	answer, err := h.service.QueryTag(c.Request.Context(), q.Filename)
	if err != nil {
		h.log.Warn().Err(err).Str("filename", q.Filename).Msg("tag query failed")
		responses.HandleError(c, err, "failed to read tags")
		return
	}

	if answer.Duplicate {
		tags := answer.Tags
		if tags == nil {
			tags = []upload.TagRecord{}
		}
		c.JSON(http.StatusOK, responses.DuplicateResponse{
			Duplicate:   true,
			HasTags:     answer.HasTags,
			Tags:        tags,
			OriginalKey: answer.OriginalKey,
		})
		return
	}
	c.JSON(http.StatusOK, responses.TagResponse{
		Tags:     answer.Tags,
		Tag:      answer.Tag,
		FilePath: answer.FilePath,
	})
}
