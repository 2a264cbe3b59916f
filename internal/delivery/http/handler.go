package http

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smartshop/backend/internal/domain"
	"github.com/smartshop/backend/internal/usecase"
)

const maxReceiptBytes = 10 << 20

// statusClientClosedRequest reports a caller that went away before the response
const statusClientClosedRequest = 499

// Handler holds dependencies for HTTP handlers
type Handler struct {
	shopping *usecase.ShoppingService
	version  string
}

// NewHandler creates a new HTTP handler
func NewHandler(shopping *usecase.ShoppingService, version string) *Handler {
	if version == "" {
		version = "1.0.0"
	}
	return &Handler{shopping: shopping, version: version}
}

type addItemRequest struct {
	Name string `json:"name" binding:"required"`
}

type saveListRequest struct {
	Name string `json:"name" binding:"required"`
	Icon string `json:"icon"`
}

// optimizeRequest uses pointers so a missing coordinate is distinguishable from zero
type optimizeRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "smartshop-backend",
		"version": h.version,
	})
}

// GetState returns the full client state
func (h *Handler) GetState(c *gin.Context) {
	state := h.shopping.State()
	c.JSON(http.StatusOK, gin.H{
		"items":      state.Items,
		"savedLists": state.SavedLists,
		"progress":   state.Progress,
		"running":    state.Running,
		"lastError":  state.LastError,
		"hasResult":  state.Result != nil,
	})
}

// ListItems returns the live grocery list
func (h *Handler) ListItems(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": h.shopping.Items()})
}

// AddItem appends an item to the live list
func (h *Handler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: name is required"})
		return
	}

	item, err := h.shopping.AddItem(c.Request.Context(), req.Name)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// ClearItems empties the live list
func (h *Handler) ClearItems(c *gin.Context) {
	if err := h.shopping.ClearItems(c.Request.Context()); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveItem deletes one item from the live list
func (h *Handler) RemoveItem(c *gin.Context) {
	if err := h.shopping.RemoveItem(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// LoadBasicBasket replaces the live list with the staples preset
func (h *Handler) LoadBasicBasket(c *gin.Context) {
	items, err := h.shopping.LoadBasicBasket(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ImportReceipt parses an uploaded PDF receipt and appends its products
func (h *Handler) ImportReceipt(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: multipart field 'file' is required"})
		return
	}
	if header.Size > maxReceiptBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Receipt exceeds 10MB"})
		return
	}

	f, err := header.Open()
	if err != nil {
		h.handleError(c, err)
		return
	}
	defer f.Close()

	pdf, err := io.ReadAll(io.LimitReader(f, maxReceiptBytes))
	if err != nil {
		h.handleError(c, err)
		return
	}

	items, err := h.shopping.ImportReceipt(c.Request.Context(), base64.StdEncoding.EncodeToString(pdf))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ListSavedLists returns saved lists, newest first
func (h *Handler) ListSavedLists(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"lists": h.shopping.SavedLists()})
}

// SuggestListName proposes a name and icon for the live list
func (h *Handler) SuggestListName(c *gin.Context) {
	suggestion, err := h.shopping.SuggestListName(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestion)
}

// SaveList snapshots the live list
func (h *Handler) SaveList(c *gin.Context) {
	var req saveListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: name is required"})
		return
	}

	list, err := h.shopping.SaveList(c.Request.Context(), req.Name, req.Icon)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

// LoadSavedList replaces the live list with a saved one
func (h *Handler) LoadSavedList(c *gin.Context) {
	items, err := h.shopping.LoadSavedList(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// DeleteSavedList removes a saved list
func (h *Handler) DeleteSavedList(c *gin.Context) {
	if err := h.shopping.DeleteSavedList(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Optimize runs a price comparison of the live list around the given location
func (h *Handler) Optimize(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		h.handleError(c, domain.ErrLocationUnavailable)
		return
	}

	loc := domain.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}
	result, err := h.shopping.Optimize(c.Request.Context(), loc)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result":     result,
		"categories": usecase.Categories(result),
	})
}

// GetProgress returns the progress of the current or last run
func (h *Handler) GetProgress(c *gin.Context) {
	state := h.shopping.State()
	c.JSON(http.StatusOK, gin.H{
		"completed": state.Progress.Completed,
		"total":     state.Progress.Total,
		"running":   state.Running,
	})
}

// GetResults returns the ranked view of the latest result
func (h *Handler) GetResults(c *gin.Context) {
	opts := usecase.ViewOptions{
		SortBy:   strings.ToLower(c.DefaultQuery("sort", usecase.SortByDistance)),
		Category: c.Query("category"),
	}
	if opts.SortBy != usecase.SortByDistance && opts.SortBy != usecase.SortByPrice {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: sort must be 'distance' or 'price'"})
		return
	}
	if raw := c.Query("maxDistance"); raw != "" {
		km, err := strconv.ParseFloat(raw, 64)
		if err != nil || km < 0 || math.IsNaN(km) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: maxDistance must be a non-negative number"})
			return
		}
		opts.MaxDistanceKm = &km
	}

	result, err := h.shopping.Result()
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"markets":    usecase.BuildView(result, opts),
		"categories": usecase.Categories(result),
		"summary":    result.Summary,
	})
}

// handleError maps domain errors to HTTP status codes
func (h *Handler) handleError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("[Handler] request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrEmptyList):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrLocationUnavailable):
		return http.StatusPreconditionFailed
	case errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrSavedListNotFound),
		errors.Is(err, domain.ErrNoResult),
		errors.Is(err, domain.ErrNoNearbyStock):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAdvisorFailure),
		errors.Is(err, domain.ErrMalformedResponse),
		errors.Is(err, domain.ErrRateLimited):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}
