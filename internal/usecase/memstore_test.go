package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// テスト用のインメモリDB。WithinTxは1本ずつ直列に実行し、
// エラー時はtx開始時点のスナップショットに戻す（行ロック＋ロールバックの代わり）
type memStore struct {
	mu sync.Mutex
	st *memState
}

type memState struct {
	nextID     int64
	products   map[int64]model.Product
	carts      map[int64]model.Cart // key: cart id
	cartItems  map[int64]map[int64]model.CartItem
	orders     map[int64]model.Order
	orderItems map[int64][]model.OrderItem
}

func newMemStore() *memStore {
	return &memStore{st: &memState{
		nextID:     100,
		products:   map[int64]model.Product{},
		carts:      map[int64]model.Cart{},
		cartItems:  map[int64]map[int64]model.CartItem{},
		orders:     map[int64]model.Order{},
		orderItems: map[int64][]model.OrderItem{},
	}}
}

func (st *memState) clone() *memState {
	c := &memState{
		nextID:     st.nextID,
		products:   make(map[int64]model.Product, len(st.products)),
		carts:      make(map[int64]model.Cart, len(st.carts)),
		cartItems:  make(map[int64]map[int64]model.CartItem, len(st.cartItems)),
		orders:     make(map[int64]model.Order, len(st.orders)),
		orderItems: make(map[int64][]model.OrderItem, len(st.orderItems)),
	}
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.carts {
		c.carts[k] = v
	}
	for k, items := range st.cartItems {
		m := make(map[int64]model.CartItem, len(items))
		for pid, it := range items {
			m[pid] = it
		}
		c.cartItems[k] = m
	}
	for k, v := range st.orders {
		c.orders[k] = v
	}
	for k, v := range st.orderItems {
		c.orderItems[k] = append([]model.OrderItem(nil), v...)
	}
	return c
}

func (st *memState) id() int64 {
	st.nextID++
	return st.nextID
}

func (s *memStore) WithinTx(_ context.Context, fn func(r repo.TxRepos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(memTxRepos{s: s}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// ---- テスト用の操作 ----

func (s *memStore) addProduct(p model.Product) model.Product {
	if p.ID == 0 {
		p.ID = s.st.id()
	}
	s.st.products[p.ID] = p
	return p
}

func (s *memStore) stock(productID int64) int64 {
	return s.st.products[productID].Stock
}

func (s *memStore) addCartItem(userID, productID, qty int64) {
	cart, _ := memCarts{s}.GetOrCreateByUserID(context.Background(), userID)
	_, _ = memCarts{s}.SetQuantity(context.Background(), cart.ID, productID, qty)
}

func (s *memStore) cartQty(userID int64) map[int64]int64 {
	out := map[int64]int64{}
	for _, c := range s.st.carts {
		if c.UserID != userID {
			continue
		}
		for pid, it := range s.st.cartItems[c.ID] {
			out[pid] = it.Quantity
		}
	}
	return out
}

func (s *memStore) orderCount() int {
	return len(s.st.orders)
}

type memTxRepos struct{ s *memStore }

func (r memTxRepos) Orders() repo.OrderRepository         { return memOrders{r.s} }
func (r memTxRepos) OrderItems() repo.OrderItemRepository { return memOrderItems{r.s} }
func (r memTxRepos) Carts() repo.CartRepository           { return memCarts{r.s} }
func (r memTxRepos) CartItems() repo.CartItemRepository   { return memCarts{r.s} }
func (r memTxRepos) Inventory() repo.InventoryRepository  { return memInventory{r.s} }
func (r memTxRepos) Products() repo.ProductRepository     { return memProducts{r.s} }

// ---- products ----

type memProducts struct{ s *memStore }

func (m memProducts) List(_ context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	out := []model.Product{}
	for _, p := range m.s.st.products {
		if q.Active == nil || p.IsActive == *q.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

func (m memProducts) FindByID(_ context.Context, id int64) (model.Product, error) {
	p, ok := m.s.st.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (m memProducts) FindActiveByIDs(_ context.Context, ids []int64) ([]model.Product, error) {
	out := []model.Product{}
	for _, id := range ids {
		if p, ok := m.s.st.products[id]; ok && p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m memProducts) Create(_ context.Context, p model.Product) (model.Product, error) {
	return m.s.addProduct(p), nil
}

func (m memProducts) Update(_ context.Context, p model.Product) error {
	if _, ok := m.s.st.products[p.ID]; !ok {
		return repo.ErrNotFound
	}
	m.s.st.products[p.ID] = p
	return nil
}

func (m memProducts) SetActive(_ context.Context, id int64, active bool) error {
	p, ok := m.s.st.products[id]
	if !ok {
		return repo.ErrNotFound
	}
	p.IsActive = active
	m.s.st.products[id] = p
	return nil
}

// ---- inventory ----

type memInventory struct{ s *memStore }

func (m memInventory) SetStock(_ context.Context, productID int64, newStock int64, adj model.InventoryAdjustment) (model.InventoryAdjustment, error) {
	p, ok := m.s.st.products[productID]
	if !ok {
		return model.InventoryAdjustment{}, repo.ErrNotFound
	}
	adj.ProductID = productID
	adj.StockBefore = p.Stock
	adj.StockAfter = newStock
	adj.Delta = newStock - p.Stock
	p.Stock = newStock
	m.s.st.products[productID] = p
	return adj, nil
}

func (m memInventory) DecreaseStockIfEnough(_ context.Context, productID int64, qty int64) (bool, error) {
	p, ok := m.s.st.products[productID]
	if !ok || !p.IsActive || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	m.s.st.products[productID] = p
	return true, nil
}

// ---- carts / cart items ----

type memCarts struct{ s *memStore }

func (m memCarts) FindByUserID(_ context.Context, userID int64) (model.Cart, error) {
	for _, c := range m.s.st.carts {
		if c.UserID == userID {
			return c, nil
		}
	}
	return model.Cart{}, repo.ErrNotFound
}

func (m memCarts) GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	if c, err := m.FindByUserID(ctx, userID); err == nil {
		return c, nil
	}
	c := model.Cart{ID: m.s.st.id(), UserID: userID}
	m.s.st.carts[c.ID] = c
	m.s.st.cartItems[c.ID] = map[int64]model.CartItem{}
	return c, nil
}

func (m memCarts) ListWithProducts(_ context.Context, cartID int64) ([]model.CartItem, error) {
	out := []model.CartItem{}
	for _, it := range m.s.st.cartItems[cartID] {
		if p, ok := m.s.st.products[it.ProductID]; ok {
			pp := p
			it.Product = &pp
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (m memCarts) SetQuantity(_ context.Context, cartID int64, productID int64, qty int64) (model.CartItem, error) {
	items, ok := m.s.st.cartItems[cartID]
	if !ok {
		return model.CartItem{}, repo.ErrNotFound
	}
	it, exists := items[productID]
	if !exists {
		it = model.CartItem{ID: m.s.st.id(), CartID: cartID, ProductID: productID}
	}
	it.Quantity = qty
	items[productID] = it
	return it, nil
}

func (m memCarts) DeleteByProduct(_ context.Context, cartID int64, productID int64) error {
	delete(m.s.st.cartItems[cartID], productID)
	return nil
}

func (m memCarts) DeleteByProducts(_ context.Context, cartID int64, productIDs []int64) (int64, error) {
	var n int64
	for _, pid := range productIDs {
		if _, ok := m.s.st.cartItems[cartID][pid]; ok {
			delete(m.s.st.cartItems[cartID], pid)
			n++
		}
	}
	return n, nil
}

func (m memCarts) ClearByCartID(_ context.Context, cartID int64) error {
	m.s.st.cartItems[cartID] = map[int64]model.CartItem{}
	return nil
}

func (m memCarts) PurgeInactive(context.Context) (int64, error) {
	var n int64
	for _, items := range m.s.st.cartItems {
		for pid := range items {
			if p, ok := m.s.st.products[pid]; !ok || !p.IsActive {
				delete(items, pid)
				n++
			}
		}
	}
	return n, nil
}

// ---- orders ----

type memOrders struct{ s *memStore }

func (m memOrders) FindByID(_ context.Context, orderID int64) (model.Order, error) {
	o, ok := m.s.st.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (m memOrders) ListByUserID(_ context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	return m.page(func(o model.Order) bool { return o.UserID == userID }, page, limit)
}

func (m memOrders) ListAdmin(_ context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	return m.page(func(o model.Order) bool {
		return f.UserID == nil || o.UserID == *f.UserID
	}, f.Page, f.Limit)
}

func (m memOrders) page(keep func(model.Order) bool, page, limit int) ([]model.Order, int64, error) {
	all := []model.Order{}
	for _, o := range m.s.st.orders {
		if keep(o) {
			all = append(all, o)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []model.Order{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (m memOrders) Create(_ context.Context, o model.Order) (int64, error) {
	if o.IdempotencyKey != nil {
		if _, found, _ := m.FindByIdempotencyKey(context.Background(), o.UserID, *o.IdempotencyKey); found {
			return 0, repo.ErrDuplicate
		}
	}
	o.ID = m.s.st.id()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	m.s.st.orders[o.ID] = o
	return o.ID, nil
}

func (m memOrders) FindByIdempotencyKey(_ context.Context, userID int64, key string) (model.Order, bool, error) {
	for _, o := range m.s.st.orders {
		if o.UserID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			return o, true, nil
		}
	}
	return model.Order{}, false, nil
}

type memOrderItems struct{ s *memStore }

func (m memOrderItems) CreateBulk(_ context.Context, orderID int64, items []model.OrderItem) error {
	if _, ok := m.s.st.orders[orderID]; !ok {
		return errors.New("order header missing")
	}
	for i := range items {
		items[i].ID = m.s.st.id()
		items[i].OrderID = orderID
	}
	m.s.st.orderItems[orderID] = append(m.s.st.orderItems[orderID], items...)
	return nil
}

func (m memOrderItems) ListByOrderID(_ context.Context, orderID int64) ([]model.OrderItem, error) {
	return append([]model.OrderItem{}, m.s.st.orderItems[orderID]...), nil
}

func (m memOrderItems) ListByOrderIDs(_ context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error) {
	out := make(map[int64][]model.OrderItem, len(orderIDs))
	for _, id := range orderIDs {
		if items, ok := m.s.st.orderItems[id]; ok {
			out[id] = append([]model.OrderItem{}, items...)
		}
	}
	return out, nil
}
