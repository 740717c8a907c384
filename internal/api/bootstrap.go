package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/restaurant-api/internal/config"
	"github.com/nao1215/restaurant-api/internal/store"
	"github.com/nao1215/restaurant-api/pkg/token"
	"go.uber.org/zap"
)

// ProvisionAdmin はADMIN_EMAILで指定された管理者アカウントを用意する。
//
// ADMIN_EMAILが空の場合は何もしない。同じメールアドレスの顧客が既に居る場合は
// パスワードを変更せず、役割だけを管理者に引き上げる。
// 管理者はPATCH /customers/:id/role でスタッフを任命できる。
func ProvisionAdmin(ctx context.Context, st *store.Store, cfg *config.Config, logger *zap.Logger) error {
	email := normalizeEmail(cfg.AdminEmail)
	if email == "" {
		return nil
	}

	existing, err := st.GetCustomerByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == string(token.RoleAdmin) {
			logger.Info("管理者アカウントは既に存在します", zap.String("customer_id", existing.ID))
			return nil
		}
		if _, err := st.UpdateCustomerRole(ctx, existing.ID, string(token.RoleAdmin)); err != nil {
			return fmt.Errorf("管理者への昇格に失敗: %w", err)
		}
		logger.Info("既存の顧客を管理者に昇格しました",
			zap.String("customer_id", existing.ID),
			zap.String("previous_role", existing.Role),
		)
		return nil
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("管理者アカウントの確認に失敗: %w", err)
	}

	hash, err := hashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	name := strings.TrimSpace(cfg.AdminName)
	if name == "" {
		name = "Administrator"
	}
	admin, err := st.CreateCustomer(ctx, store.CreateCustomerParams{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         string(token.RoleAdmin),
	})
	if err != nil {
		return fmt.Errorf("管理者アカウントの作成に失敗: %w", err)
	}
	logger.Info("管理者アカウントを作成しました", zap.String("customer_id", admin.ID))
	return nil
}
