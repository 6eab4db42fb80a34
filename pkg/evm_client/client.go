package evm_client

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

const dialTimeout = 5 * time.Second

// Dial 连接节点并校验节点返回的 chainId
func Dial(ctx context.Context, chainID uint64, rawurl string) (*ethclient.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, rawurl)
	if err != nil {
		return nil, fmt.Errorf("dial evm chain %d: %w", chainID, err)
	}
	got, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("query chain id of %d: %w", chainID, err)
	}
	if got.Uint64() != chainID {
		client.Close()
		return nil, fmt.Errorf("rpc for chain %d reports chain id %s", chainID, got)
	}
	return client, nil
}

// Pool 按 chainId 持有 ethclient
type Pool struct {
	mu      sync.RWMutex
	clients map[uint64]*ethclient.Client
}

// DialAll 连接所有配置的 EVM 链, 任一失败则整体失败
func DialAll(ctx context.Context, urls map[uint64]string) (*Pool, error) {
	p := &Pool{clients: make(map[uint64]*ethclient.Client, len(urls))}
	for chainID, url := range urls {
		client, err := Dial(ctx, chainID, url)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.clients[chainID] = client
	}
	return p, nil
}

// Client 返回 chainId 对应的客户端
func (p *Pool) Client(chainID uint64) (*ethclient.Client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.clients[chainID]
	return c, ok
}

// ChainIDs 已连接的链, 升序
func (p *Pool) ChainIDs() []uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]uint64, 0, len(p.clients))
	for id := range p.clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, c := range p.clients {
		c.Close()
		delete(p.clients, id)
	}
}
