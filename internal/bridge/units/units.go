package units

import (
	"errors"
	"math/big"
	"strings"

	"deposit-bridge/internal/bridge/errs"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"
)

const (
	opParse  = "units.ToMinorUnits"
	opFormat = "units.FromMinorUnits"
)

var (
	errNegative     = errors.New("amount must not be negative")
	errSeparators   = errors.New("amount has more than one decimal separator")
	errNoDigits     = errors.New("amount has no digits")
	errInvalidChar  = errors.New("amount contains a non-digit character")
	errOverflow     = errors.New("amount exceeds uint256")
	errInvalidMinor = errors.New("minor units must be a non-negative base-10 integer")
)

// ToMinorUnits 将十进制金额字符串转换为最小单位整数字符串
// 超出 decimals 的小数位直接截断, 不做四舍五入
func ToMinorUnits(amount string, decimals uint8) (string, error) {
	v, err := ParseUnits(amount, decimals)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// ParseUnits 同 ToMinorUnits, 返回 *big.Int
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return new(big.Int), nil
	}

	intPart, fracPart, err := split(s)
	if err != nil {
		return nil, errs.New(errs.CodeInvalidAmount, opParse, err).With("amount", amount)
	}
	if intPart == "" {
		intPart = "0"
	}
	normalized := intPart
	if fracPart != "" {
		normalized += "." + fracPart
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return nil, errs.New(errs.CodeInvalidAmount, opParse, err).With("amount", amount)
	}
	v := d.Shift(int32(decimals)).Truncate(0).BigInt()
	if v.Cmp(math.MaxBig256) > 0 {
		return nil, errs.New(errs.CodeInvalidAmount, opParse, errOverflow).With("amount", amount)
	}
	return v, nil
}

// split 校验格式: digits[.digits], 整数或小数部分之一可以为空
func split(s string) (string, string, error) {
	if s[0] == '-' {
		return "", "", errNegative
	}
	sep := -1
	digits := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			if sep >= 0 {
				return "", "", errSeparators
			}
			sep = i
		default:
			return "", "", errInvalidChar
		}
	}
	if digits == 0 {
		return "", "", errNoDigits
	}
	if sep < 0 {
		return s, "", nil
	}
	return s[:sep], s[sep+1:], nil
}

// FromMinorUnits 最小单位整数转回十进制字符串, 去掉末尾的 0
func FromMinorUnits(minor string, decimals uint8) (string, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(minor), 10)
	if !ok || v.Sign() < 0 {
		return "", errs.New(errs.CodeInvalidAmount, opFormat, errInvalidMinor).With("amount", minor)
	}
	return FormatUnits(v, decimals), nil
}

// FormatUnits 格式化单位转换
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// AdjustDecimals 调整精度显示
func AdjustDecimals(value *big.Int, decimals uint8) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, -int32(decimals))
}
