package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/restaurant-api/internal/store"
	"github.com/nao1215/restaurant-api/pkg/apperr"
	"github.com/nao1215/restaurant-api/pkg/middleware"
)

// createMenuItemRequest はメニュー項目作成リクエストのボディ。
type createMenuItemRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	PriceCents  *int64 `json:"price_cents" binding:"required,gte=0"`
	Category    string `json:"category"`
}

// menuItemResponse はメニュー項目のレスポンス。
type menuItemResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

func toMenuItemResponse(m store.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		PriceCents:  m.PriceCents,
		Category:    m.Category,
		CreatedAt:   m.CreatedAt,
	}
}

// handleListMenu はメニュー一覧を返すハンドラを返す。
// クエリパラメータcategoryで絞り込める。
func (s *Server) handleListMenu() gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := s.store.ListMenuItems(c.Request.Context(), strings.TrimSpace(c.Query("category")))
		if err != nil {
			middleware.Fail(c, apperr.Internal(err))
			return
		}

		resp := make([]menuItemResponse, 0, len(items))
		for _, m := range items {
			resp = append(resp, toMenuItemResponse(m))
		}
		c.JSON(http.StatusOK, gin.H{"items": resp})
	}
}

// handleGetMenuItem は指定IDのメニュー項目を返すハンドラを返す。
func (s *Server) handleGetMenuItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		item, err := s.store.GetMenuItem(c.Request.Context(), c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			middleware.Fail(c, apperr.NotFound("Menu item not found"))
			return
		}
		if err != nil {
			middleware.Fail(c, apperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, toMenuItemResponse(item))
	}
}

// handleCreateMenuItem はメニュー項目を作成するハンドラを返す。
// スタッフまたは管理者のみ実行できる。
func (s *Server) handleCreateMenuItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}
		if !id.IsStaff() {
			middleware.Fail(c, apperr.Forbidden("Staff role required"))
			return
		}

		var req createMenuItemRequest
		if !bindJSON(c, &req) {
			return
		}

		item, err := s.store.CreateMenuItem(c.Request.Context(), store.CreateMenuItemParams{
			Name:        strings.TrimSpace(req.Name),
			Description: req.Description,
			PriceCents:  *req.PriceCents,
			Category:    strings.TrimSpace(req.Category),
		})
		if err != nil {
			middleware.Fail(c, apperr.Internal(err))
			return
		}
		c.JSON(http.StatusCreated, toMenuItemResponse(item))
	}
}
