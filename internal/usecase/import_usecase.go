package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

// 表計算ファイルを文字列の行に変換する（1行目はヘッダ）
type SheetReader interface {
	ReadRows(r io.Reader) ([][]string, error)
}

var importColumns = []string{"type", "category", "brand", "model", "price", "stock", "dimensions", "image_url", "features"}

var requiredImportColumns = []string{"type", "category", "brand", "model", "price", "stock", "dimensions"}

type ImportFailure struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type ImportOutput struct {
	CreatedCount int             `json:"created_count"`
	FailedCount  int             `json:"failed_count"`
	Created      []model.Product `json:"created"`
	Failed       []ImportFailure `json:"failed"`
}

type ImportUsecase struct {
	reader      SheetReader
	productRepo repo.ProductRepository
	auditRepo   repo.AuditLogRepository
}

func NewImportUsecase(reader SheetReader, productRepo repo.ProductRepository, auditRepo repo.AuditLogRepository) *ImportUsecase {
	return &ImportUsecase{reader: reader, productRepo: productRepo, auditRepo: auditRepo}
}

// 行ごとに検証して作成。失敗した行は記録して続行する
func (u *ImportUsecase) ImportProducts(ctx context.Context, adminUserID int64, file io.Reader) (ImportOutput, error) {
	if adminUserID <= 0 {
		return ImportOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if file == nil {
		return ImportOutput{}, NewHTTPError(http.StatusBadRequest, "file required")
	}

	rows, err := u.reader.ReadRows(file)
	if err != nil {
		return ImportOutput{}, NewHTTPError(http.StatusBadRequest, "invalid spreadsheet")
	}
	if len(rows) == 0 {
		return ImportOutput{}, NewHTTPError(http.StatusBadRequest, "empty spreadsheet")
	}

	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredImportColumns {
		if _, ok := cols[c]; !ok {
			return ImportOutput{}, NewHTTPError(http.StatusBadRequest, "missing column: "+c)
		}
	}

	out := ImportOutput{Created: []model.Product{}, Failed: []ImportFailure{}}
	for i, row := range rows[1:] {
		rowNum := i + 2
		if isBlankRow(row) {
			continue
		}

		cell := func(name string) string {
			idx, ok := cols[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		in, err := parseImportRow(cell)
		if err != nil {
			out.Failed = append(out.Failed, ImportFailure{Row: rowNum, Error: err.Error()})
			continue
		}
		p, err := newProductFromInput(in)
		if err != nil {
			msg := err.Error()
			if he, ok := AsHTTPError(err); ok {
				msg = he.Message
			}
			out.Failed = append(out.Failed, ImportFailure{Row: rowNum, Error: msg})
			continue
		}

		created, err := u.productRepo.Create(ctx, p)
		if err != nil {
			out.Failed = append(out.Failed, ImportFailure{Row: rowNum, Error: "could not save product"})
			continue
		}
		out.Created = append(out.Created, created)
	}

	out.CreatedCount = len(out.Created)
	out.FailedCount = len(out.Failed)

	if err := writeAudit(ctx, u.auditRepo, adminUserID, model.AuditActionImportProducts, model.AuditResourceProduct, 0,
		nil, map[string]int{"created": out.CreatedCount, "failed": out.FailedCount}); err != nil {
		return ImportOutput{}, err
	}
	return out, nil
}

func parseImportRow(cell func(string) string) (ProductInput, error) {
	in := ProductInput{}
	for _, c := range importColumns {
		v := cell(c)
		switch c {
		case "type":
			in.Type = &v
		case "category":
			in.Category = &v
		case "brand":
			in.Brand = &v
		case "model":
			in.Model = &v
		case "image_url":
			in.ImageURL = &v
		case "features":
			in.Features = &v
		}
	}

	//小数点はカンマも許す
	price, err := decimal.NewFromString(strings.ReplaceAll(cell("price"), ",", "."))
	if err != nil {
		return ProductInput{}, fmt.Errorf("invalid price")
	}
	in.Price = &price

	//空欄は在庫0
	var s int64
	if raw := cell("stock"); raw != "" {
		stock, err := decimal.NewFromString(raw)
		if err != nil || !stock.IsInteger() {
			return ProductInput{}, fmt.Errorf("stock must be an integer")
		}
		s = stock.IntPart()
	}
	in.Stock = &s

	raw := cell("dimensions")
	if raw == "" {
		return ProductInput{}, fmt.Errorf("dimensions required")
	}
	var sd sheetDimensions
	if err := json.Unmarshal([]byte(raw), &sd); err != nil {
		return ProductInput{}, fmt.Errorf("dimensions must be JSON {length, width, thickness} or {largo, ancho, grosor}")
	}
	dim := sd.dimensions()
	in.Dimensions = &dim

	return in, nil
}

// 旧シートの largo/ancho/grosor も読む
type sheetDimensions struct {
	Length    *float64 `json:"length"`
	Width     *float64 `json:"width"`
	Thickness *float64 `json:"thickness"`
	Largo     *float64 `json:"largo"`
	Ancho     *float64 `json:"ancho"`
	Grosor    *float64 `json:"grosor"`
}

func (d sheetDimensions) dimensions() model.Dimensions {
	pick := func(vs ...*float64) float64 {
		for _, v := range vs {
			if v != nil {
				return *v
			}
		}
		return 0
	}
	return model.Dimensions{
		Length:    pick(d.Length, d.Largo),
		Width:     pick(d.Width, d.Ancho),
		Thickness: pick(d.Thickness, d.Grosor),
	}
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
