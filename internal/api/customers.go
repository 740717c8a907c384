package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/restaurant-api/internal/store"
	"github.com/nao1215/restaurant-api/pkg/apperr"
	"github.com/nao1215/restaurant-api/pkg/middleware"
	"github.com/nao1215/restaurant-api/pkg/token"
	"go.uber.org/zap"
)

// customerResponse は顧客のレスポンス。パスワードハッシュは含めない。
type customerResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toCustomerResponse(c store.Customer) customerResponse {
	return customerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Role:      c.Role,
		CreatedAt: c.CreatedAt,
	}
}

// updateRoleRequest は役割変更リクエストのボディ。
type updateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=customer staff admin"`
}

// handleListCustomers は顧客一覧を返すハンドラを返す。スタッフ・管理者のみ参照できる。
func (s *Server) handleListCustomers() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}
		if !id.IsStaff() {
			middleware.Fail(c, apperr.Forbidden("Staff role required"))
			return
		}

		customers, err := s.store.ListCustomers(c.Request.Context())
		if err != nil {
			middleware.Fail(c, apperr.Internal(err))
			return
		}

		resp := make([]customerResponse, 0, len(customers))
		for _, cu := range customers {
			resp = append(resp, toCustomerResponse(cu))
		}
		c.JSON(http.StatusOK, gin.H{"customers": resp})
	}
}

// handleGetCustomer は指定IDの顧客を返すハンドラを返す。
// 顧客は自分自身のみ、スタッフ・管理者は全員を参照できる。
func (s *Server) handleGetCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}
		// 存在有無を漏らさないよう、検索より先に権限を確認する
		if c.Param("id") != id.ID && !id.IsStaff() {
			middleware.Fail(c, apperr.Forbidden("Customer belongs to another account"))
			return
		}

		customer, err := s.store.GetCustomerByID(c.Request.Context(), c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			middleware.Fail(c, apperr.NotFound("Customer not found"))
			return
		}
		if err != nil {
			middleware.Fail(c, apperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, toCustomerResponse(customer))
	}
}

// handleUpdateCustomerRole は顧客の役割を変更するハンドラを返す。管理者のみ実行できる。
// 変更後の役割は次回ログイン時に発行されるトークンから有効になる。
func (s *Server) handleUpdateCustomerRole() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}
		if id.Role != token.RoleAdmin {
			middleware.Fail(c, apperr.Forbidden("Admin role required"))
			return
		}

		var req updateRoleRequest
		if !bindJSON(c, &req) {
			return
		}

		customer, err := s.store.UpdateCustomerRole(c.Request.Context(), c.Param("id"), req.Role)
		if errors.Is(err, store.ErrNotFound) {
			middleware.Fail(c, apperr.NotFound("Customer not found"))
			return
		}
		if err != nil {
			middleware.Fail(c, apperr.Internal(err))
			return
		}

		s.logger.Info("顧客の役割を変更しました",
			zap.String("customer_id", customer.ID),
			zap.String("role", customer.Role),
			zap.String("changed_by", id.ID),
		)
		c.JSON(http.StatusOK, toCustomerResponse(customer))
	}
}
