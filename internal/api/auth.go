package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/restaurant-api/internal/config"
	"github.com/nao1215/restaurant-api/internal/store"
	"github.com/nao1215/restaurant-api/pkg/apperr"
	"github.com/nao1215/restaurant-api/pkg/middleware"
	"github.com/nao1215/restaurant-api/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

// messageInvalidLogin はログイン失敗時のメッセージ。
// メールアドレスの存在有無を区別しない。
const messageInvalidLogin = "Invalid credentials"

// messagePasswordTooLong はbcryptの上限を超えるパスワードのメッセージ。
var messagePasswordTooLong = fmt.Sprintf("Password must be at most %d bytes", config.MaxPasswordBytes)

// registerRequest は顧客登録リクエストのボディ。
type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// tokenResponse はトークン発行のレスポンス。
type tokenResponse struct {
	Token    string            `json:"token"`
	Customer *customerResponse `json:"customer,omitempty"`
}

// handleRegister は顧客を登録してトークンを発行するハンドラを返す。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if !bindJSON(c, &req) {
			return
		}

		// bindingのmaxは文字数で数えるため、バイト数はここで検証する
		if len(req.Password) > config.MaxPasswordBytes {
			middleware.Fail(c, apperr.New(http.StatusBadRequest, apperr.KindBadRequest, messagePasswordTooLong))
			return
		}

		hash, err := hashPassword(req.Password)
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			middleware.Fail(c, apperr.BadRequest(err, messagePasswordTooLong))
			return
		}
		if err != nil {
			middleware.Fail(c, apperr.Internal(err))
			return
		}

		customer, err := s.store.CreateCustomer(c.Request.Context(), store.CreateCustomerParams{
			Name:         strings.TrimSpace(req.Name),
			Email:        normalizeEmail(req.Email),
			PasswordHash: string(hash),
			Role:         string(token.RoleCustomer),
		})
		if errors.Is(err, store.ErrConflict) {
			middleware.Fail(c, apperr.Conflict("Email is already registered"))
			return
		}
		if err != nil {
			middleware.Fail(c, apperr.Internal(err))
			return
		}

		tok, err := s.issuer.Issue(token.Identity{ID: customer.ID, Role: token.Role(customer.Role)})
		if err != nil {
			middleware.Fail(c, apperr.Internal(err))
			return
		}

		resp := toCustomerResponse(customer)
		c.JSON(http.StatusCreated, tokenResponse{Token: tok, Customer: &resp})
	}
}

// handleLogin はメールアドレスとパスワードを検証してトークンを発行するハンドラを返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if !bindJSON(c, &req) {
			return
		}

		customer, err := s.store.GetCustomerByEmail(c.Request.Context(), normalizeEmail(req.Email))
		if errors.Is(err, store.ErrNotFound) {
			middleware.Fail(c, apperr.New(http.StatusUnauthorized, apperr.KindInvalidCredential, messageInvalidLogin))
			return
		}
		if err != nil {
			middleware.Fail(c, apperr.Internal(err))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(req.Password)); err != nil {
			middleware.Fail(c, apperr.Wrap(err, http.StatusUnauthorized, apperr.KindInvalidCredential, messageInvalidLogin))
			return
		}

		tok, err := s.issuer.Issue(token.Identity{ID: customer.ID, Role: token.Role(customer.Role)})
		if err != nil {
			middleware.Fail(c, apperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, tokenResponse{Token: tok})
	}
}

// handleMe は呼び出し元のIdentityを返すハンドラを返す。
func (s *Server) handleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": id})
	}
}

// hashPassword はパスワードをbcryptでハッシュ化する。
func hashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗: %w", err)
	}
	return hash, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
