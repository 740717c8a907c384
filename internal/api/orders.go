package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/restaurant-api/internal/store"
	"github.com/nao1215/restaurant-api/pkg/apperr"
	"github.com/nao1215/restaurant-api/pkg/middleware"
)

// messageInvalidQuantity は数量が範囲外のときのメッセージ。
var messageInvalidQuantity = fmt.Sprintf("Quantity must be between 1 and %d", store.MaxQuantity)

// createOrderRequest は注文作成リクエストのボディ。
type createOrderRequest struct {
	Items []orderLineRequest `json:"items" binding:"required,min=1,dive"`
}

// orderLineRequest は注文明細の指定。
type orderLineRequest struct {
	MenuItemID string `json:"menu_item_id" binding:"required"`
	Quantity   int64  `json:"quantity"`
}

// orderResponse は注文のレスポンス。
type orderResponse struct {
	ID         string              `json:"id"`
	CustomerID string              `json:"customer_id"`
	TotalCents int64               `json:"total_cents"`
	Items      []orderItemResponse `json:"items"`
	CreatedAt  time.Time           `json:"created_at"`
}

// orderItemResponse は注文明細のレスポンス。
type orderItemResponse struct {
	MenuItemID     string `json:"menu_item_id"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

func toOrderResponse(o store.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			MenuItemID:     it.MenuItemID,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		})
	}
	return orderResponse{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		TotalCents: o.TotalCents,
		Items:      items,
		CreatedAt:  o.CreatedAt,
	}
}

// handleCreateOrder は呼び出し元の顧客として注文を作成するハンドラを返す。
func (s *Server) handleCreateOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}

		var req createOrderRequest
		if !bindJSON(c, &req) {
			return
		}

		// トークンが有効でも顧客レコードが無ければ注文できない
		if _, err := s.store.GetCustomerByID(c.Request.Context(), id.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				middleware.Fail(c, apperr.NotFound("Customer not found"))
				return
			}
			middleware.Fail(c, apperr.Internal(err))
			return
		}

		lines := make([]store.OrderLine, 0, len(req.Items))
		for _, it := range req.Items {
			lines = append(lines, store.OrderLine{MenuItemID: it.MenuItemID, Quantity: it.Quantity})
		}

		order, err := s.store.CreateOrder(c.Request.Context(), id.ID, lines)
		switch {
		case errors.Is(err, store.ErrUnknownMenuItem):
			middleware.Fail(c, apperr.BadRequest(err, "Unknown menu item"))
			return
		case errors.Is(err, store.ErrInvalidQuantity):
			middleware.Fail(c, apperr.BadRequest(err, messageInvalidQuantity))
			return
		case errors.Is(err, store.ErrEmptyOrder):
			middleware.Fail(c, apperr.BadRequest(err, "Order must contain at least one item"))
			return
		case err != nil:
			middleware.Fail(c, apperr.Internal(err))
			return
		}
		c.JSON(http.StatusCreated, toOrderResponse(order))
	}
}

// handleListOrders は呼び出し元の注文一覧を返すハンドラを返す。
func (s *Server) handleListOrders() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}

		orders, err := s.store.ListOrdersByCustomer(c.Request.Context(), id.ID)
		if err != nil {
			middleware.Fail(c, apperr.Internal(err))
			return
		}

		resp := make([]orderResponse, 0, len(orders))
		for _, o := range orders {
			resp = append(resp, toOrderResponse(o))
		}
		c.JSON(http.StatusOK, gin.H{"orders": resp})
	}
}

// handleGetOrder は指定IDの注文を返すハンドラを返す。
// 他の顧客の注文はスタッフ・管理者のみ参照できる。
func (s *Server) handleGetOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}

		order, err := s.store.GetOrder(c.Request.Context(), c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			middleware.Fail(c, apperr.NotFound("Order not found"))
			return
		}
		if err != nil {
			middleware.Fail(c, apperr.Internal(err))
			return
		}

		if order.CustomerID != id.ID && !id.IsStaff() {
			middleware.Fail(c, apperr.Forbidden("Order belongs to another customer"))
			return
		}
		c.JSON(http.StatusOK, toOrderResponse(order))
	}
}
