package search

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bookarr/internal/provider"
)

type Handler struct {
	Aggregator *Aggregator
	Enricher   *Enricher
	Kavita     *provider.Kavita
}

func NewHandler(agg *Aggregator, enricher *Enricher, kavita *provider.Kavita) *Handler {
	return &Handler{Aggregator: agg, Enricher: enricher, Kavita: kavita}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.search)          // GET /search?q=...&source=all
	rg.GET("/sources", h.sources) // GET /search/sources
}

func (h *Handler) search(c *gin.Context) {
	query := c.Query("q")
	source := c.DefaultQuery("source", "all")

	results, srcErrs, err := h.Aggregator.Search(c.Request.Context(), query, source)
	switch {
	case errors.Is(err, ErrQueryTooShort):
		c.JSON(http.StatusBadRequest, gin.H{"error": "query too short"})
		return
	case errors.Is(err, ErrUnknownSource):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown source"})
		return
	case errors.Is(err, ErrAllSourcesFailed):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "all search sources failed",
			"details": srcErrs,
		})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	if h.Enricher != nil {
		h.Enricher.Annotate(c.Request.Context(), results)
	}

	resp := gin.H{"results": results}
	if len(srcErrs) > 0 {
		resp["errors"] = srcErrs
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) sources(c *gin.Context) {
	ctx := c.Request.Context()

	out := gin.H{}
	for _, p := range h.Aggregator.Providers {
		enabled := p.Enabled(ctx)
		connected := false
		if enabled {
			connected = p.TestConnection(ctx)
		}
		out[p.Name()] = gin.H{"enabled": enabled, "connected": connected}
	}

	if h.Kavita != nil {
		enabled := h.Kavita.Enabled(ctx)
		connected := false
		if enabled {
			connected = h.Kavita.TestConnection(ctx)
		}
		out["kavita"] = gin.H{"enabled": enabled, "connected": connected}
	}

	c.JSON(http.StatusOK, out)
}
