package requests

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bookarr/internal/auth"
	"bookarr/pkg/models"
)

// bookAdder pushes a requested book to the download backend. Implemented
// by the Readarr adapter; nil when Readarr is not configured.
type bookAdder interface {
	Enabled(ctx context.Context) bool
	AddBook(ctx context.Context, externalID string) (int64, error)
}

type Handler struct {
	Repo  *Repo
	Adder bookAdder
}

func NewHandler(repo *Repo, adder bookAdder) *Handler {
	return &Handler{Repo: repo, Adder: adder}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.create)
	rg.GET("", h.list)
}

type createReq struct {
	ExternalID string `json:"external_id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	CoverURL   string `json:"cover_url"`
}

func (h *Handler) create(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	req.ExternalID = strings.TrimSpace(req.ExternalID)
	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	if req.ExternalID == "" || req.Title == "" || req.Author == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "external_id, title and author required"})
		return
	}

	exists, err := h.Repo.ExistsForUser(c.Request.Context(), claims.UserID, req.ExternalID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "request lookup failed"})
		return
	}
	if exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "already requested"})
		return
	}

	r := models.Request{
		UserID:     claims.UserID,
		ExternalID: req.ExternalID,
		Title:      req.Title,
		Author:     req.Author,
		CoverURL:   req.CoverURL,
		Status:     models.RequestPending,
	}

	// Best effort: push the book to the download backend right away. A
	// backend failure still records the request as pending so a later
	// pass (or a retry) can pick it up.
	if h.Adder != nil && h.Adder.Enabled(c.Request.Context()) {
		providerID, err := h.Adder.AddBook(c.Request.Context(), req.ExternalID)
		if err != nil {
			log.Printf("[requests] add %q to readarr: %v", req.Title, err)
		} else {
			r.Status = models.RequestAdded
			r.ProviderID = providerID
		}
	}

	id, err := h.Repo.Create(c.Request.Context(), r)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create request failed"})
		return
	}
	r.ID = id

	c.JSON(http.StatusCreated, gin.H{
		"id":          r.ID,
		"external_id": r.ExternalID,
		"title":       r.Title,
		"author":      r.Author,
		"status":      r.Status,
	})
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	items, err := h.Repo.ListByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list requests failed"})
		return
	}
	if items == nil {
		items = []models.Request{}
	}

	c.JSON(http.StatusOK, gin.H{"requests": items})
}
