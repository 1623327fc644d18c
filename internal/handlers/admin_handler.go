package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace/internal/services"
)

// AdminHandler exposes maintenance endpoints behind the admin gate.
type AdminHandler struct {
	cache services.CacheStore
}

func NewAdminHandler(cache services.CacheStore) *AdminHandler {
	return &AdminHandler{cache: cache}
}

// ClearCache drops a cache segment. Reads rebuild from the database, so the
// worst case of clearing too much is a brief cold-cache window.
func (h *AdminHandler) ClearCache(c *gin.Context) {
	var req struct {
		Segment string `json:"segment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid request format"})
		return
	}

	var prefixes []string
	switch req.Segment {
	case "orders":
		prefixes = []string{"order:", "orders:"}
	case "vendors":
		prefixes = []string{"vendor:"}
	case "all":
		prefixes = []string{"order:", "orders:", "vendor:"}
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "segment must be one of: orders, vendors, all"})
		return
	}

	for _, prefix := range prefixes {
		if err := h.cache.DeleteByPrefix(c.Request.Context(), prefix); err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared", "segment": req.Segment})
}
