package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// MaxQuantity は1明細あたりの数量の上限。同一項目を合算した後の数量にも適用する。
const MaxQuantity = 1000

// Order は注文のレコード。
type Order struct {
	ID         string
	CustomerID string
	// TotalCents は明細の単価×数量の合計。
	TotalCents int64
	Items      []OrderItem
	CreatedAt  time.Time
}

// OrderItem は注文明細。
type OrderItem struct {
	MenuItemID string
	Quantity   int64
	// UnitPriceCents は注文時点の単価。
	UnitPriceCents int64
}

// OrderLine は注文作成時の明細の指定。
type OrderLine struct {
	MenuItemID string
	Quantity   int64
}

// CreateOrder は顧客の注文を作成する。
// 同じメニュー項目が複数回指定された場合は数量を合算する。
// 存在しないメニュー項目はErrUnknownMenuItem、数量が1からMaxQuantityの範囲外の場合や
// 合計金額がint64に収まらない場合はErrInvalidQuantityを返す。
func (s *Store) CreateOrder(ctx context.Context, customerID string, lines []OrderLine) (Order, error) {
	if len(lines) == 0 {
		return Order{}, ErrEmptyOrder
	}

	// 明細の順序を保ったまま同一項目を合算する
	quantities := make(map[string]int64, len(lines))
	var menuItemIDs []string
	for _, l := range lines {
		if l.Quantity <= 0 || l.Quantity > MaxQuantity {
			return Order{}, fmt.Errorf("%w: menu_item_id=%s quantity=%d", ErrInvalidQuantity, l.MenuItemID, l.Quantity)
		}
		if _, ok := quantities[l.MenuItemID]; !ok {
			menuItemIDs = append(menuItemIDs, l.MenuItemID)
		}
		quantities[l.MenuItemID] += l.Quantity
		if quantities[l.MenuItemID] > MaxQuantity {
			return Order{}, fmt.Errorf("%w: menu_item_id=%s 合算数量=%d", ErrInvalidQuantity, l.MenuItemID, quantities[l.MenuItemID])
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Order{}, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	order := Order{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	for _, id := range menuItemIDs {
		var price int64
		err := tx.QueryRowContext(ctx, "SELECT price_cents FROM menu_items WHERE id = ?", id).Scan(&price)
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, fmt.Errorf("%w: %s", ErrUnknownMenuItem, id)
		}
		if err != nil {
			return Order{}, fmt.Errorf("メニュー項目の取得に失敗: %w", err)
		}
		subtotal, ok := mulAdd(order.TotalCents, price, quantities[id])
		if !ok {
			return Order{}, fmt.Errorf("%w: 合計金額が上限を超えます", ErrInvalidQuantity)
		}
		order.Items = append(order.Items, OrderItem{
			MenuItemID:     id,
			Quantity:       quantities[id],
			UnitPriceCents: price,
		})
		order.TotalCents = subtotal
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO orders (id, customer_id, total_cents, created_at) VALUES (?, ?, ?, ?)",
		order.ID, order.CustomerID, order.TotalCents, order.CreatedAt,
	); err != nil {
		return Order{}, fmt.Errorf("注文の作成に失敗: %w", err)
	}
	for _, item := range order.Items {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, menu_item_id, quantity, unit_price_cents) VALUES (?, ?, ?, ?)",
			order.ID, item.MenuItemID, item.Quantity, item.UnitPriceCents,
		); err != nil {
			return Order{}, fmt.Errorf("注文明細の作成に失敗: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Order{}, fmt.Errorf("コミットに失敗: %w", err)
	}
	return order, nil
}

// mulAdd はtotal + price*quantityを計算する。int64を超える場合はfalseを返す。
// priceとquantityは非負であること。
func mulAdd(total, price, quantity int64) (int64, bool) {
	if quantity != 0 && price > math.MaxInt64/quantity {
		return 0, false
	}
	line := price * quantity
	if total > math.MaxInt64-line {
		return 0, false
	}
	return total + line, true
}

// GetOrder はIDで注文を明細付きで取得する。
func (s *Store) GetOrder(ctx context.Context, id string) (Order, error) {
	var o Order
	err := s.db.QueryRowContext(ctx,
		"SELECT id, customer_id, total_cents, created_at FROM orders WHERE id = ?", id,
	).Scan(&o.ID, &o.CustomerID, &o.TotalCents, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("注文の取得に失敗: %w", err)
	}

	items, err := s.listOrderItems(ctx, o.ID)
	if err != nil {
		return Order{}, err
	}
	o.Items = items
	return o, nil
}

// ListOrdersByCustomer は顧客の注文を新しい順に明細付きで取得する。
func (s *Store) ListOrdersByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, customer_id, total_cents, created_at FROM orders WHERE customer_id = ? ORDER BY created_at DESC, id",
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("注文一覧の取得に失敗: %w", err)
	}

	orders := make([]Order, 0)
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.TotalCents, &o.CreatedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("注文の読み取りに失敗: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("注文一覧の走査に失敗: %w", err)
	}
	// インメモリDBは1接続のため、明細を取得する前に閉じておく
	_ = rows.Close()

	for i := range orders {
		items, err := s.listOrderItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

// listOrderItems は注文の明細を取得する。
func (s *Store) listOrderItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT menu_item_id, quantity, unit_price_cents FROM order_items WHERE order_id = ? ORDER BY rowid",
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("注文明細の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]OrderItem, 0)
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.MenuItemID, &item.Quantity, &item.UnitPriceCents); err != nil {
			return nil, fmt.Errorf("注文明細の読み取りに失敗: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("注文明細の走査に失敗: %w", err)
	}
	return items, nil
}
