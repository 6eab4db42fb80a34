package bech32addr

import (
	"bytes"
	"strings"
	"testing"

	"deposit-bridge/internal/bridge/errs"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
)

const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

func payload(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i*7)
	}
	return b
}

func TestToBridgePayload(t *testing.T) {
	raw := payload(20, 0x11)
	addr, err := Encode("dydx", raw)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(addr, "dydx1"))

	hex, err := ToBridgePayload(addr)
	require.NoError(t, err)
	require.Len(t, hex, 42)
	require.True(t, strings.HasPrefix(hex, "0x"))
	require.Equal(t, hexutil.Encode(raw), hex)
}

func TestRoundTrip(t *testing.T) {
	for _, hrp := range []string{"dydx", "cosmos", "osmo", "noble"} {
		for _, n := range []int{20, 32} {
			raw := payload(n, byte(n))
			addr, err := Encode(hrp, raw)
			require.NoError(t, err)

			hex, err := ToBridgePayload(addr)
			require.NoError(t, err)

			again, err := FromBridgePayload(hrp, hex)
			require.NoError(t, err)
			require.Equal(t, addr, again)

			gotHRP, gotRaw, err := Decode(again)
			require.NoError(t, err)
			require.Equal(t, hrp, gotHRP)
			require.True(t, bytes.Equal(raw, gotRaw))
		}
	}
}

func TestCorruptedChecksum(t *testing.T) {
	addr, err := Encode("dydx", payload(20, 0x42))
	require.NoError(t, err)

	// 逐个替换数据与校验和部分的字符
	sep := strings.LastIndexByte(addr, '1')
	for i := sep + 1; i < len(addr); i++ {
		orig := addr[i]
		for j := 0; j < len(charset); j++ {
			c := charset[j]
			if c == orig {
				continue
			}
			bad := addr[:i] + string(c) + addr[i+1:]
			_, err := ToBridgePayload(bad)
			require.ErrorIs(t, err, errs.ErrInvalidAddress, "mutation %d -> %q accepted", i, c)
			break
		}
	}
}

func TestInvalidAddress(t *testing.T) {
	good, err := Encode("dydx", payload(20, 1))
	require.NoError(t, err)

	for _, in := range []string{
		"",
		"dydx",
		"0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238",
		strings.ToUpper(good[:10]) + good[10:],
		good[:len(good)-1] + "b",
		good + "q",
		"dydx1" + strings.Repeat("q", 100),
	} {
		_, err := ToBridgePayload(in)
		require.Error(t, err, "input %q", in)
		require.Equal(t, errs.CodeInvalidAddress, errs.CodeOf(err))
	}
}

func TestRejectsBech32m(t *testing.T) {
	data, err := bech32.ConvertBits(payload(20, 9), 8, 5, true)
	require.NoError(t, err)
	addr, err := bech32.EncodeM("dydx", data)
	require.NoError(t, err)

	_, err = ToBridgePayload(addr)
	require.ErrorIs(t, err, errs.ErrInvalidAddress)
}

func TestUppercaseAccepted(t *testing.T) {
	raw := payload(20, 3)
	addr, err := Encode("dydx", raw)
	require.NoError(t, err)

	hex, err := ToBridgePayload(strings.ToUpper(addr))
	require.NoError(t, err)
	require.Equal(t, hexutil.Encode(raw), hex)
}

func TestFromBridgePayloadInvalidHex(t *testing.T) {
	_, err := FromBridgePayload("dydx", "not-hex")
	require.ErrorIs(t, err, errs.ErrInvalidAddress)
}
