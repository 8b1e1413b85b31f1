package repository

import "context"

// 同じトランザクションに乗ったrepo一式。WithinTxのfnの中でだけ使う
type TxRepos interface {
	Products() ProductRepository
	Inventory() InventoryRepository
	Carts() CartRepository
	CartItems() CartItemRepository
	Orders() OrderRepository
	OrderItems() OrderItemRepository
}

// fnがnilならcommit、エラーかpanicならrollback
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
