package usecase

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"storefront/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeSheetReader struct {
	rows [][]string
	err  error
}

func (f fakeSheetReader) ReadRows(io.Reader) ([][]string, error) {
	return f.rows, f.err
}

var importHeader = []string{"Type", "Category", "Brand", "Model", "Price", "Stock", "Dimensions", "Image_URL", "Features"}

func TestImportUsecase_ImportProducts_MixedRows(t *testing.T) {
	store := newMemStore()
	audit := &AuditRepoMock{}
	audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionImportProducts && l.AfterJSON == `{"created":2,"failed":3}`
	})).Return(nil).Once()

	reader := fakeSheetReader{rows: [][]string{
		importHeader,
		{"laptop", "computers", "Acme", "Book 14", "999,50", "3", `{"length":32,"width":22,"thickness":1.5}`, "", ""},
		{"phone", "mobile", "Acme", "P1", "10", "0", `{"length":15,"width":7,"thickness":0.8}`, "/img/p1.png", "5G"},
		{"", "", "", "", "", "", "", "", ""},
		{"phone", "mobile", "Acme", "P2", "abc", "1", `{"length":1,"width":1,"thickness":1}`},
		{"phone", "mobile", "Acme", "P3", "10", "1.5", `{"length":1,"width":1,"thickness":1}`},
		{"phone", "mobile", "Acme", "P4", "-1", "1", `{"length":1,"width":1,"thickness":1}`},
	}}
	uc := NewImportUsecase(reader, memProducts{store}, audit)

	out, err := uc.ImportProducts(context.Background(), 1, strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, 2, out.CreatedCount)
	assert.Equal(t, 3, out.FailedCount)

	assert.Equal(t, "999.5", out.Created[0].Price.String())
	assert.Equal(t, defaultProductImage, out.Created[0].ImageURL)
	assert.Equal(t, "5G", out.Created[1].Features)

	//空行は数えない
	assert.Equal(t, []ImportFailure{
		{Row: 5, Error: "invalid price"},
		{Row: 6, Error: "stock must be an integer"},
		{Row: 7, Error: "price must be > 0"},
	}, out.Failed)
	audit.AssertExpectations(t)
}

func TestImportUsecase_ImportProducts_LegacySheet(t *testing.T) {
	store := newMemStore()
	audit := &AuditRepoMock{}
	audit.On("Create", mock.Anything, auditAction(model.AuditActionImportProducts)).Return(nil).Once()

	reader := fakeSheetReader{rows: [][]string{
		importHeader,
		{"laptop", "computers", "Acme", "Book 14", "999,50", "", `{"largo":10,"ancho":5,"grosor":2}`, "", ""},
		{"phone", "mobile", "Acme", "P1", "10", "4", `{"largo":15,"ancho":0,"grosor":1}`, "", ""},
	}}
	uc := NewImportUsecase(reader, memProducts{store}, audit)

	out, err := uc.ImportProducts(context.Background(), 1, strings.NewReader("x"))
	require.NoError(t, err)
	require.Equal(t, 1, out.CreatedCount)
	assert.Equal(t, int64(0), out.Created[0].Stock)
	assert.Equal(t, model.Dimensions{Length: 10, Width: 5, Thickness: 2}, out.Created[0].Dimensions)

	//0の辺は受け付けない
	require.Len(t, out.Failed, 1)
	assert.Equal(t, 3, out.Failed[0].Row)
	assert.Equal(t, "dimensions must have positive length, width and thickness", out.Failed[0].Error)
}

func TestImportUsecase_ImportProducts_BadFile(t *testing.T) {
	tests := []struct {
		name   string
		reader fakeSheetReader
		msg    string
	}{
		{"unreadable", fakeSheetReader{err: errors.New("zip: not a valid zip file")}, "invalid spreadsheet"},
		{"empty", fakeSheetReader{rows: [][]string{}}, "empty spreadsheet"},
		{"missing column", fakeSheetReader{rows: [][]string{{"type", "category", "brand", "model", "price", "stock"}}}, "missing column: dimensions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audit := &AuditRepoMock{}
			uc := NewImportUsecase(tt.reader, memProducts{newMemStore()}, audit)

			_, err := uc.ImportProducts(context.Background(), 1, strings.NewReader("x"))
			he, ok := AsHTTPError(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusBadRequest, he.Status)
			assert.Equal(t, tt.msg, he.Message)
			audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestImportUsecase_ImportProducts_RequiresAdmin(t *testing.T) {
	uc := NewImportUsecase(fakeSheetReader{}, memProducts{newMemStore()}, &AuditRepoMock{})

	_, err := uc.ImportProducts(context.Background(), 0, strings.NewReader("x"))
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, he.Status)
}
