package registry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Entry 某条链上的桥合约
type Entry struct {
	ChainID  uint64
	Contract common.Address
	ABI      abi.ABI
	Method   string
}

// Pack 编码 bridge 调用数据
func (e Entry) Pack(args ...any) ([]byte, error) {
	return e.ABI.Pack(e.Method, args...)
}

// Registry chainId -> 桥合约, 构造后只读
type Registry struct {
	entries map[uint64]Entry
}

// New 以内置地址表为基础, 叠加配置中的地址(key 为十进制 chainId)
func New(overrides map[string]string) (*Registry, error) {
	parsed, err := abi.JSON(strings.NewReader(BridgeABI))
	if err != nil {
		return nil, fmt.Errorf("parse bridge abi: %w", err)
	}
	if _, ok := parsed.Methods[BridgeMethod]; !ok {
		return nil, fmt.Errorf("bridge abi has no %q method", BridgeMethod)
	}

	addrs := make(map[uint64]string, len(DefaultContracts)+len(overrides))
	for id, addr := range DefaultContracts {
		addrs[id] = addr
	}
	for key, addr := range overrides {
		id, err := strconv.ParseUint(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q: %w", key, err)
		}
		addrs[id] = addr
	}

	r := &Registry{entries: make(map[uint64]Entry, len(addrs))}
	for id, addr := range addrs {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			// 空地址表示该链暂不支持
			continue
		}
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid bridge address %q for chain %d", addr, id)
		}
		r.entries[id] = Entry{
			ChainID:  id,
			Contract: common.HexToAddress(addr),
			ABI:      parsed,
			Method:   BridgeMethod,
		}
	}
	return r, nil
}

// Lookup 按 chainId 查询, 非数字 chainId(Solana/Cosmos)视为不存在
func (r *Registry) Lookup(chainID string) (Entry, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(chainID), 10, 64)
	if err != nil {
		return Entry{}, false
	}
	return r.LookupID(id)
}

// LookupID 按数字 chainId 查询
func (r *Registry) LookupID(chainID uint64) (Entry, bool) {
	e, ok := r.entries[chainID]
	return e, ok
}

// IsAvailable 该链是否已部署桥合约
func (r *Registry) IsAvailable(chainID string) bool {
	_, ok := r.Lookup(chainID)
	return ok
}

// ChainIDs 已支持的链, 升序
func (r *Registry) ChainIDs() []uint64 {
	ids := make([]uint64, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
