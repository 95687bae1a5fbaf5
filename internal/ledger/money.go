package ledger

import (
	"github.com/shopspring/decimal"
)

// 金额列为 decimal(20,2)：最多两位小数，整数部分最多 18 位
const MoneyScale = 2

var maxMoney = decimal.New(1, 18)

// CheckAmount 金额必须为正，且能被金额列原样保存
func CheckAmount(field string, amount decimal.Decimal) error {
	switch {
	case !amount.IsPositive():
		return NewError(KindValidation, "%s 必须大于0: %s", field, amount.String())
	case !amount.Equal(amount.Truncate(MoneyScale)):
		return NewError(KindValidation, "%s 最多保留 %d 位小数: %s", field, MoneyScale, amount.String())
	case amount.GreaterThanOrEqual(maxMoney):
		return NewError(KindValidation, "%s 超出金额上限: %s", field, amount.String())
	}
	return nil
}

// CheckNonNegativeAmount 允许为零的金额（如预付款抵扣额）只校验精度和上限
func CheckNonNegativeAmount(field string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	if amount.IsNegative() {
		return NewError(KindValidation, "%s 不能为负: %s", field, amount.String())
	}
	return CheckAmount(field, amount)
}
