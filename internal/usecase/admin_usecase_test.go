package usecase

import (
	"context"
	"net/http"
	"testing"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuditLogUsecase_List(t *testing.T) {
	audit := &AuditRepoMock{}
	uc := NewAuditLogUsecase(audit)

	action := model.AuditActionUpdateStock
	f := repo.AuditLogFilter{Action: &action, Limit: 50}
	audit.On("List", mock.Anything, f).Return([]model.AuditLog{{ID: 1, Action: action}}, nil).Once()

	logs, err := uc.List(context.Background(), f)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	audit.AssertExpectations(t)
}

func TestAuditLogUsecase_List_Invalid(t *testing.T) {
	uc := NewAuditLogUsecase(&AuditRepoMock{})
	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)

	for _, f := range []repo.AuditLogFilter{
		{Limit: -1},
		{Offset: -1},
		{CreatedFrom: &from, CreatedTo: &to},
	} {
		_, err := uc.List(context.Background(), f)
		he, ok := AsHTTPError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, he.Status)
	}
}

func TestAdminOrderUsecase_List_FilterByUser(t *testing.T) {
	store, uc, _, _ := newOrderFixture(t)
	p := store.addProduct(model.Product{Price: price("5.00"), Stock: 10, IsActive: true})
	for _, userID := range []int64{1, 2, 2} {
		_, err := uc.CreateOrder(context.Background(), userID, CreateOrderInput{Items: []OrderLineInput{{ProductID: p.ID, Quantity: 1}}})
		require.NoError(t, err)
	}

	userID := int64(2)
	out, err := NewAdminOrderUsecase(store).List(context.Background(), repo.AdminOrderListFilter{UserID: &userID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Total)
	for _, o := range out.Items {
		assert.Equal(t, userID, o.UserID)
		require.Len(t, o.Items, 1)
	}
}

func TestAdminOrderUsecase_List_Invalid(t *testing.T) {
	uc := NewAdminOrderUsecase(newMemStore())
	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)

	_, err := uc.List(context.Background(), repo.AdminOrderListFilter{From: &from, To: &to})
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, "from must be before to", he.Message)

	_, err = uc.List(context.Background(), repo.AdminOrderListFilter{Page: -1})
	he, ok = AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
}
