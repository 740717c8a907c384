package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/restaurant-api/internal/config"
	"github.com/nao1215/restaurant-api/internal/store"
	"github.com/nao1215/restaurant-api/pkg/apperr"
	"github.com/nao1215/restaurant-api/pkg/middleware"
	"github.com/nao1215/restaurant-api/pkg/token"
	"go.uber.org/zap"
)

// WelcomeMessage は GET / が返す本文。
const WelcomeMessage = "Welcome to Restaurant API"

// Server はレストランAPIのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg は起動時に読み込んだ設定。
	cfg *config.Config
	// store は顧客・メニュー・注文の永続化層。
	store *store.Store
	// verifier はベアラートークンの検証器。
	verifier *token.Verifier
	// issuer はログイン時のトークン発行器。
	issuer *token.Issuer
	// logger は構造化ロガー。
	logger *zap.Logger
}

// NewServer は新しいレストランAPIサーバーを生成する。
func NewServer(cfg *config.Config, st *store.Store, logger *zap.Logger) *Server {
	s := &Server{
		router:   gin.New(),
		cfg:      cfg,
		store:    st,
		verifier: token.NewVerifier(cfg.JWTSecret),
		issuer:   token.NewIssuer(cfg.JWTSecret, cfg.TokenIssuer, cfg.TokenTTL),
		logger:   logger,
	}
	s.setupRoutes()
	return s
}

// Handler はサーバーのhttp.Handlerを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルシャットダウンする。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.Info("サーバーを起動しました", zap.String("addr", srv.Addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("サーバーの起動に失敗: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("シャットダウンを開始します", zap.Duration("timeout", s.cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("シャットダウンに失敗: %w", err)
	}
	return nil
}

// setupRoutes はAPIルーティングを設定する。
//
// ミドルウェアの適用順:
//
//	ErrorHandler → Recovery → CORS → GET /
//	                               → JSONBody → RequestLogger → /menu, /orders, /customers, /auth
//	                                                          → NotFound
//
// GET / はJSONBodyとRequestLoggerより前に登録するため、それらを通らない。
// 末尾スラッシュのリダイレクトは無効にし、コレクションは /menu と /menu/ の両方で受け付ける。
func (s *Server) setupRoutes() {
	s.router.RedirectTrailingSlash = false

	s.router.Use(middleware.ErrorHandler(s.logger))
	s.router.Use(middleware.Recovery(s.logger))
	if len(s.cfg.CORSAllowedOrigins) > 0 {
		s.router.Use(middleware.CORS(s.cfg.CORSAllowedOrigins))
	}

	s.router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, WelcomeMessage)
	})

	s.router.Use(middleware.JSONBody(s.cfg.BodyLimit))
	s.router.Use(middleware.RequestLogger(s.logger))

	menu := s.group("menu")
	{
		collection(menu, http.MethodGet, s.handleListMenu())
		menu.GET("/:id", s.handleGetMenuItem())
		collection(menu, http.MethodPost, append(s.identityRequired("menu"), s.handleCreateMenuItem())...)
	}

	orders := s.group("orders")
	{
		collection(orders, http.MethodPost, append(s.identityRequired("orders"), s.handleCreateOrder())...)
		collection(orders, http.MethodGet, append(s.identityRequired("orders"), s.handleListOrders())...)
		orders.GET("/:id", append(s.identityRequired("orders"), s.handleGetOrder())...)
	}

	customers := s.group("customers")
	{
		collection(customers, http.MethodGet, append(s.identityRequired("customers"), s.handleListCustomers())...)
		customers.GET("/:id", append(s.identityRequired("customers"), s.handleGetCustomer())...)
		customers.PATCH("/:id/role", append(s.identityRequired("customers"), s.handleUpdateCustomerRole())...)
	}

	// 認証エンドポイントは設定に関わらずゲートを掛けない
	auth := s.router.Group("/auth")
	{
		auth.POST("/register", s.handleRegister())
		auth.POST("/login", s.handleLogin())
		auth.GET("/me", middleware.Auth(s.verifier), s.handleMe())
	}

	s.router.NoRoute(middleware.NotFound())
}

// group はリソースグループを生成し、設定で保護対象ならAuthを適用する。
func (s *Server) group(name string) *gin.RouterGroup {
	g := s.router.Group("/" + name)
	if s.cfg.IsProtected(name) {
		g.Use(middleware.Auth(s.verifier))
	}
	return g
}

// collection はグループ直下のルートを末尾スラッシュの有無どちらでも登録する。
func collection(g *gin.RouterGroup, method string, handlers ...gin.HandlerFunc) {
	g.Handle(method, "", handlers...)
	g.Handle(method, "/", handlers...)
}

// identityRequired はIdentityが必要なルートに追加するハンドラを返す。
// グループ全体が保護対象であれば何も追加しない。
func (s *Server) identityRequired(group string) []gin.HandlerFunc {
	if s.cfg.IsProtected(group) {
		return nil
	}
	return []gin.HandlerFunc{middleware.Auth(s.verifier)}
}

// identity はコンテキストから認証済みIdentityを取得する。
// 取得できない場合はMissingCredentialの失敗を積んでfalseを返す。
func identity(c *gin.Context) (token.Identity, bool) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		middleware.Fail(c, apperr.MissingCredential())
		return token.Identity{}, false
	}
	return id, true
}

// bindJSON はリクエストボディをdstにバインドする。
// 失敗した場合は400の失敗を積んでfalseを返す。
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.Fail(c, apperr.BadRequest(err, "Invalid request body"))
		return false
	}
	return true
}
