package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/janhq/image-upload/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all v1 routes under /v1 prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/v1")
	group.GET("/presign", r.handlers.Tag.Presign)
	group.POST("/tag", r.handlers.Tag.Tag)
	// Older clients query tags with GET.
	group.GET("/tag", r.handlers.Tag.Tag)
}
