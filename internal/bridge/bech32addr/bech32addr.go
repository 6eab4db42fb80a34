package bech32addr

import (
	"errors"
	"fmt"

	"deposit-bridge/internal/bridge/errs"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	errBech32m      = errors.New("bech32m checksum is not accepted")
	errEmptyPayload = errors.New("address carries no payload")
)

// Decode 解码 bech32 地址, 返回前缀和原始字节
func Decode(human string) (string, []byte, error) {
	hrp, data, version, err := bech32.DecodeGeneric(human)
	if err != nil {
		return "", nil, invalid("bech32addr.Decode", human, err)
	}
	if version != bech32.Version0 {
		return "", nil, invalid("bech32addr.Decode", human, errBech32m)
	}
	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, invalid("bech32addr.Decode", human, err)
	}
	if len(payload) == 0 {
		return "", nil, invalid("bech32addr.Decode", human, errEmptyPayload)
	}
	return hrp, payload, nil
}

// ToBridgePayload 将人类可读地址转换为桥合约需要的 0x 十六进制字节
func ToBridgePayload(human string) (string, error) {
	_, payload, err := Decode(human)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(payload), nil
}

// FromBridgePayload 用给定前缀将 0x 十六进制字节重新编码为地址
func FromBridgePayload(hrp, payloadHex string) (string, error) {
	payload, err := hexutil.Decode(payloadHex)
	if err != nil {
		return "", invalid("bech32addr.FromBridgePayload", payloadHex, err)
	}
	return Encode(hrp, payload)
}

// Encode 原始字节编码为 bech32 地址
func Encode(hrp string, payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", invalid("bech32addr.Encode", hrp, errEmptyPayload)
	}
	data, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", invalid("bech32addr.Encode", hrp, err)
	}
	addr, err := bech32.Encode(hrp, data)
	if err != nil {
		return "", invalid("bech32addr.Encode", hrp, err)
	}
	return addr, nil
}

func invalid(op, input string, err error) error {
	return errs.New(errs.CodeInvalidAddress, op, fmt.Errorf("%q: %w", input, err))
}
