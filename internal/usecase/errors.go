package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

type HTTPError struct {
	Status  int
	Message string
	// 500のときの原因（ログ用。クライアントには返さない）
	Err error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d: %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

// DBなど想定外のエラー
func internalError(err error) error {
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Message: "internal error",
		Err:     err,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 注文・チェックアウトのドメインエラーの種類
type DomainErrorKind string

const (
	ErrKindEmptyItems      DomainErrorKind = "EMPTY_ITEMS"
	ErrKindEmptyCart       DomainErrorKind = "EMPTY_CART"
	ErrKindOutOfStock      DomainErrorKind = "OUT_OF_STOCK"
	ErrKindProductInactive DomainErrorKind = "PRODUCT_INACTIVE"
	ErrKindProductNotFound DomainErrorKind = "PRODUCT_NOT_FOUND"
)

// ProductIDはEmptyItems/EmptyCartのとき0
type DomainError struct {
	Kind      DomainErrorKind
	ProductID int64
}

func (e *DomainError) Error() string {
	if e.ProductID == 0 {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s:%d", e.Kind, e.ProductID)
}

// errors.Is(err, &DomainError{Kind: ErrKindOutOfStock}) のように種類だけで比較できる
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.ProductID == 0 || t.ProductID == e.ProductID)
}

func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	ok := errors.As(err, &de)
	return de, ok
}

func ErrEmptyItems() error { return &DomainError{Kind: ErrKindEmptyItems} }
func ErrEmptyCart() error  { return &DomainError{Kind: ErrKindEmptyCart} }
func ErrOutOfStock(productID int64) error {
	return &DomainError{Kind: ErrKindOutOfStock, ProductID: productID}
}
func ErrProductInactive(productID int64) error {
	return &DomainError{Kind: ErrKindProductInactive, ProductID: productID}
}
func ErrProductNotFound(productID int64) error {
	return &DomainError{Kind: ErrKindProductNotFound, ProductID: productID}
}
