package usecase

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"storefront/internal/domain/event"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	orderSourceDirect = "direct"
	orderSourceCart   = "cart"

	defaultOrderPageSize = 10
	maxOrderPageSize     = 100
)

// 同じIdempotency-Keyの再送を早く返すためのキャッシュ（正はDB）
type OrderIdempotencyCache interface {
	Get(ctx context.Context, userID int64, key string) (orderID int64, found bool, err error)
	Set(ctx context.Context, userID int64, key string, orderID int64) error
}

// コミット後に呼ばれる
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, ev event.OrderCreated) error
}

type OrderMetrics interface {
	ObserveOrder(source, outcome string)
}

type OrderUsecase struct {
	tx      repo.TransactionManager
	cache   OrderIdempotencyCache
	events  OrderEventPublisher
	metrics OrderMetrics
	log     logrus.FieldLogger
}

// cache/events/metricsはnilなら無効
func NewOrderUsecase(
	tx repo.TransactionManager,
	cache OrderIdempotencyCache,
	events OrderEventPublisher,
	metrics OrderMetrics,
	log logrus.FieldLogger,
) *OrderUsecase {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &OrderUsecase{tx: tx, cache: cache, events: events, metrics: metrics, log: log}
}

type OrderLineInput struct {
	ProductID int64
	Quantity  int64
}

type CreateOrderInput struct {
	Items          []OrderLineInput
	IdempotencyKey string
}

type CheckoutInput struct {
	// 支払い手段の参照（課金はしない）
	CardID         string
	IdempotencyKey string
}

type OrderItemOutput struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type OrderOutput struct {
	ID        int64             `json:"id"`
	UserID    int64             `json:"user_id"`
	Total     decimal.Decimal   `json:"total"`
	CreatedAt time.Time         `json:"created_at"`
	Items     []OrderItemOutput `json:"items"`
}

type CheckoutOutput struct {
	OrderOutput
	CardID string `json:"card_id"`
}

type OrderListOutput struct {
	Items    []OrderOutput `json:"items"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Total    int64         `json:"total"`
	HasMore  bool          `json:"has_more"`
}

// 明細を指定して注文する
func (u *OrderUsecase) CreateOrder(ctx context.Context, userID int64, in CreateOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid items")
		}
	}
	key, err := normalizeIdempotencyKey(in.IdempotencyKey)
	if err != nil {
		return OrderOutput{}, err
	}

	lines := mergeLines(in.Items)
	if len(lines) == 0 {
		u.observe(orderSourceDirect, ErrEmptyItems())
		return OrderOutput{}, ErrEmptyItems()
	}

	return u.place(ctx, orderSourceDirect, userID, key, func(r repo.TxRepos) (OrderOutput, error) {
		return createOrderWithTx(ctx, r, userID, lines, key)
	})
}

// カートの中身で注文する。非公開商品が1つでもあれば全体を中止（黙って外さない）
func (u *OrderUsecase) CheckoutFromCart(ctx context.Context, userID int64, in CheckoutInput) (CheckoutOutput, error) {
	if userID <= 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	cardID := strings.TrimSpace(in.CardID)
	if cardID == "" {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "no payment method")
	}
	key, err := normalizeIdempotencyKey(in.IdempotencyKey)
	if err != nil {
		return CheckoutOutput{}, err
	}

	out, err := u.place(ctx, orderSourceCart, userID, key, func(r repo.TxRepos) (OrderOutput, error) {
		cart, err := r.Carts().FindByUserID(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return OrderOutput{}, ErrEmptyCart()
		}
		if err != nil {
			return OrderOutput{}, internalError(err)
		}

		items, err := r.CartItems().ListWithProducts(ctx, cart.ID)
		if err != nil {
			return OrderOutput{}, internalError(err)
		}
		if len(items) == 0 {
			return OrderOutput{}, ErrEmptyCart()
		}

		lines := make([]OrderLineInput, 0, len(items))
		for _, it := range items {
			if it.Product == nil || !it.Product.IsActive {
				return OrderOutput{}, ErrProductInactive(it.ProductID)
			}
			lines = append(lines, OrderLineInput{ProductID: it.ProductID, Quantity: it.Quantity})
		}

		created, err := createOrderWithTx(ctx, r, userID, mergeLines(lines), key)
		if err != nil {
			return OrderOutput{}, err
		}

		//同じtxでカートを空にする
		if err := r.CartItems().ClearByCartID(ctx, cart.ID); err != nil {
			return OrderOutput{}, internalError(err)
		}
		return created, nil
	})
	if err != nil {
		return CheckoutOutput{}, err
	}
	return CheckoutOutput{OrderOutput: out, CardID: cardID}, nil
}

// 冪等キーの確認→tx内で作成→後処理（キャッシュ、イベント、メトリクス）
func (u *OrderUsecase) place(
	ctx context.Context,
	source string,
	userID int64,
	key *string,
	create func(r repo.TxRepos) (OrderOutput, error),
) (OrderOutput, error) {
	if out, ok := u.replayFromCache(ctx, userID, key); ok {
		u.observe(source, nil)
		return out, nil
	}

	var out OrderOutput
	replayed := false
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if key != nil {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, *key)
			if err != nil {
				return internalError(err)
			}
			if found {
				items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
				if err != nil {
					return internalError(err)
				}
				out = toOrderOutput(existing, items)
				replayed = true
				return nil
			}
		}

		created, err := create(r)
		if err != nil {
			return err
		}
		out = created
		return nil
	})

	//同じキーが同時に入った。ロールバック後に勝った方を返す
	if errors.Is(err, repo.ErrDuplicate) && key != nil {
		out, err = u.findByKey(ctx, userID, *key)
		replayed = err == nil
	}

	u.observe(source, err)
	if err != nil {
		return OrderOutput{}, err
	}

	if key != nil && u.cache != nil {
		if cerr := u.cache.Set(ctx, userID, *key, out.ID); cerr != nil {
			u.log.WithError(cerr).WithField("order_id", out.ID).Warn("idempotency cache set failed")
		}
	}
	if !replayed {
		u.publish(ctx, source, out)
	}
	return out, nil
}

func (u *OrderUsecase) replayFromCache(ctx context.Context, userID int64, key *string) (OrderOutput, bool) {
	if key == nil || u.cache == nil {
		return OrderOutput{}, false
	}
	orderID, found, err := u.cache.Get(ctx, userID, *key)
	if err != nil {
		u.log.WithError(err).Warn("idempotency cache get failed")
		return OrderOutput{}, false
	}
	if !found {
		return OrderOutput{}, false
	}

	var out OrderOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return repo.ErrNotFound
		}
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return err
		}
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		//キャッシュが古いだけなのでDBの確認に任せる
		return OrderOutput{}, false
	}
	return out, true
}

func (u *OrderUsecase) findByKey(ctx context.Context, userID int64, key string) (OrderOutput, error) {
	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return internalError(err)
		}
		if !found {
			return NewHTTPError(http.StatusConflict, "idempotency conflict")
		}
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return internalError(err)
		}
		out = toOrderOutput(o, items)
		return nil
	})
	return out, err
}

func (u *OrderUsecase) publish(ctx context.Context, source string, out OrderOutput) {
	if u.events == nil {
		return
	}
	ev := event.OrderCreated{
		OrderID:   out.ID,
		UserID:    out.UserID,
		Source:    source,
		Total:     out.Total,
		Items:     make([]event.OrderCreatedItem, 0, len(out.Items)),
		CreatedAt: out.CreatedAt,
	}
	for _, it := range out.Items {
		ev.Items = append(ev.Items, event.OrderCreatedItem{ProductID: it.ProductID, Quantity: it.Quantity, Subtotal: it.Subtotal})
	}
	if err := u.events.PublishOrderCreated(ctx, ev); err != nil {
		u.log.WithError(err).WithField("order_id", out.ID).Warn("publish order created failed")
	}
}

func (u *OrderUsecase) observe(source string, err error) {
	if u.metrics == nil {
		return
	}
	u.metrics.ObserveOrder(source, orderOutcome(err))
}

func orderOutcome(err error) string {
	if err == nil {
		return "created"
	}
	if de, ok := AsDomainError(err); ok {
		return strings.ToLower(string(de.Kind))
	}
	if he, ok := AsHTTPError(err); ok && he.Status < http.StatusInternalServerError {
		return "rejected"
	}
	return "error"
}

// 1つのtxの中で：価格読み取り→ヘッダ→明細→在庫の条件付き減算。
// どこで失敗してもtxごとロールバックされる
func createOrderWithTx(ctx context.Context, r repo.TxRepos, userID int64, lines []OrderLineInput, key *string) (OrderOutput, error) {
	if len(lines) == 0 {
		return OrderOutput{}, ErrEmptyItems()
	}

	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := r.Products().FindActiveByIDs(ctx, ids)
	if err != nil {
		return OrderOutput{}, internalError(err)
	}
	byID := make(map[int64]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	now := time.Now()
	total := decimal.Zero
	items := make([]model.OrderItem, 0, len(lines))
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return OrderOutput{}, ErrProductNotFound(l.ProductID)
		}
		subtotal := p.Price.Mul(decimal.NewFromInt(l.Quantity))
		total = total.Add(subtotal)
		items = append(items, model.OrderItem{
			ProductID:           p.ID,
			ProductNameSnapshot: p.DisplayName(),
			UnitPriceSnapshot:   p.Price,
			Quantity:            l.Quantity,
			Subtotal:            subtotal,
			CreatedAt:           now,
		})
	}

	order := model.Order{
		UserID:         userID,
		Total:          total,
		IdempotencyKey: key,
		CreatedAt:      now,
	}
	orderID, err := r.Orders().Create(ctx, order)
	if errors.Is(err, repo.ErrDuplicate) {
		return OrderOutput{}, err
	}
	if err != nil {
		return OrderOutput{}, internalError(err)
	}
	order.ID = orderID

	if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
		return OrderOutput{}, internalError(err)
	}

	//在庫減算（0行更新なら在庫不足か非公開になった）
	for _, l := range lines {
		ok, err := r.Inventory().DecreaseStockIfEnough(ctx, l.ProductID, l.Quantity)
		if err != nil {
			return OrderOutput{}, internalError(err)
		}
		if !ok {
			return OrderOutput{}, ErrOutOfStock(l.ProductID)
		}
	}

	return toOrderOutput(order, items), nil
}

// 同じ商品は数量を合算。商品ID順に並べて行ロックの順番をそろえる
func mergeLines(items []OrderLineInput) []OrderLineInput {
	qty := make(map[int64]int64, len(items))
	for _, it := range items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			continue
		}
		qty[it.ProductID] += it.Quantity
	}

	out := make([]OrderLineInput, 0, len(qty))
	for id, q := range qty {
		out = append(out, OrderLineInput{ProductID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func normalizeIdempotencyKey(raw string) (*string, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return nil, nil
	}
	if len(key) > 255 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid idempotency key")
	}
	return &key, nil
}

// 自分の注文一覧（新しい順）
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page, pageSize int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	page, pageSize = normalizePage(page, pageSize, defaultOrderPageSize, maxOrderPageSize)
	return listOrders(ctx, u.tx, page, pageSize, func(r repo.TxRepos) ([]model.Order, int64, error) {
		return r.Orders().ListByUserID(ctx, userID, page, pageSize)
	})
}

// 一覧と明細を同じtxで読む
func listOrders(
	ctx context.Context,
	tx repo.TransactionManager,
	page, pageSize int,
	find func(r repo.TxRepos) ([]model.Order, int64, error),
) (OrderListOutput, error) {
	out := OrderListOutput{Items: []OrderOutput{}, Page: page, PageSize: pageSize}
	err := tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := find(r)
		if err != nil {
			return internalError(err)
		}
		ids := make([]int64, 0, len(orders))
		for _, o := range orders {
			ids = append(ids, o.ID)
		}
		//明細はまとめて1回で読む
		itemsByOrder, err := r.OrderItems().ListByOrderIDs(ctx, ids)
		if err != nil {
			return internalError(err)
		}
		for _, o := range orders {
			out.Items = append(out.Items, toOrderOutput(o, itemsByOrder[o.ID]))
		}
		out.Total = total
		return nil
	})
	if err != nil {
		return OrderListOutput{}, err
	}
	out.HasMore = int64(page*pageSize) < out.Total
	return out, nil
}

// 本人か管理者だけ見られる
func (u *OrderUsecase) GetOrder(ctx context.Context, viewerID int64, viewerRole model.Role, orderID int64) (OrderOutput, error) {
	if viewerID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return internalError(err)
		}
		if o.UserID != viewerID && viewerRole != model.RoleAdmin {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return internalError(err)
		}
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			UnitPrice: it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal,
		})
	}

	return OrderOutput{
		ID:        o.ID,
		UserID:    o.UserID,
		Total:     o.Total,
		CreatedAt: o.CreatedAt,
		Items:     outItems,
	}
}

// page>=1、pageSizeは1..max（0ならdef）
func normalizePage(page, pageSize, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = def
	}
	if pageSize > max {
		pageSize = max
	}
	return page, pageSize
}
