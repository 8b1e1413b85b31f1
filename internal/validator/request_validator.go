package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// echo.Validatorとして登録する（c.Validateで呼ばれる）
type RequestValidator struct {
	v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	//エラーメッセージはjsonのフィールド名で出す
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{v: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	if err := rv.v.Struct(i); err != nil {
		return &ValidationError{Message: describe(err)}
	}
	return nil
}

// ハンドラーで400にする
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// 最初の違反だけを短い文にする
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt", "gte", "lt", "lte", "min", "max":
		return fmt.Sprintf("%s must be %s %s", field, fe.Tag(), fe.Param())
	case "email":
		return "invalid email format"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
