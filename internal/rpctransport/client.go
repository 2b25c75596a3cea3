// Package rpctransport connects to an EVM node over WebSocket or HTTP
// and exposes the two calls the traversal engine needs: the chain's
// current height and a single block fetch by height.
package rpctransport

import (
	"context"
	"encoding/hex"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/YatsauAliaksei/chain-scraper/internal/chainmodel"
)

// RetryConfig controls dial/fetch retry behaviour.
type RetryConfig struct {
	Attempts int
	DelayMS  int
}

// DefaultRetryConfig mirrors the teacher's own defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Attempts: 3, DelayMS: 1500}
}

// Client wraps go-ethereum's ethclient. The URL scheme picks the
// transport: ws:// or wss:// dial a persistent WebSocket, http:// or
// https:// dial plain HTTP. ethclient.DialContext already performs
// this scheme-based selection internally.
type Client struct {
	eth   *ethclient.Client
	retry RetryConfig
}

// Dial establishes a connection with retry support.
func Dial(ctx context.Context, url string, retry RetryConfig) (*Client, error) {
	if retry.Attempts == 0 {
		retry.Attempts = 3
	}
	if retry.DelayMS == 0 {
		retry.DelayMS = 1500
	}

	var (
		eth *ethclient.Client
		err error
	)

	for attempt := 1; attempt <= retry.Attempts; attempt++ {
		eth, err = ethclient.DialContext(ctx, url)
		if err == nil {
			return &Client{eth: eth, retry: retry}, nil
		}

		logrus.Warnf("rpc dial failed (attempt %d/%d): %v", attempt, retry.Attempts, err)

		if attempt < retry.Attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(retry.DelayMS) * time.Millisecond):
			}
		}
	}

	return nil, err
}

// LatestHeight fetches the chain's current height via eth_blockNumber.
func (c *Client) LatestHeight(ctx context.Context) (uint64, error) {
	var (
		num uint64
		err error
	)

	for attempt := 1; attempt <= c.retry.Attempts; attempt++ {
		num, err = c.eth.BlockNumber(ctx)
		if err == nil {
			return num, nil
		}

		logrus.Warnf("LatestHeight failed (attempt %d/%d): %v", attempt, c.retry.Attempts, err)

		if attempt < c.retry.Attempts {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(time.Duration(c.retry.DelayMS) * time.Millisecond):
			}
		}
	}

	return 0, err
}

// BlockByHeight retrieves a block with its transactions via
// eth_getBlockByNumber(full=true). A block not found by the node
// returns (nil, nil); any other failure is returned as an error.
func (c *Client) BlockByHeight(ctx context.Context, height uint64) (*chainmodel.Block, error) {
	var (
		block *types.Block
		err   error
	)

	for attempt := 1; attempt <= c.retry.Attempts; attempt++ {
		block, err = c.eth.BlockByNumber(ctx, new(big.Int).SetUint64(height))
		if err == nil {
			return convertBlock(block), nil
		}

		if isNotFound(err) {
			return nil, nil
		}

		logrus.Warnf("BlockByHeight(%d) failed (attempt %d/%d): %v", height, attempt, c.retry.Attempts, err)

		if attempt < c.retry.Attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(c.retry.DelayMS) * time.Millisecond):
			}
		}
	}

	return nil, err
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
}

func convertBlock(b *types.Block) *chainmodel.Block {
	txs := make([]chainmodel.Transaction, 0, len(b.Transactions()))
	for i, tx := range b.Transactions() {
		to := ""
		if tx.To() != nil {
			to = strings.ToLower(tx.To().Hex())
		}

		from, _ := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)

		txs = append(txs, chainmodel.Transaction{
			Hash:        tx.Hash().Hex(),
			Nonce:       tx.Nonce(),
			BlockHash:   b.Hash().Hex(),
			BlockHeight: b.NumberU64(),
			Index:       uint64(i),
			From:        strings.ToLower(from.Hex()),
			To:          to,
			Value:       tx.Value().String(),
			GasPrice:    tx.GasPrice().String(),
			Gas:         tx.Gas(),
			Input:       "0x" + hex.EncodeToString(tx.Data()),
		})
	}

	return &chainmodel.Block{
		Height:       b.NumberU64(),
		Hash:         b.Hash().Hex(),
		ParentHash:   b.ParentHash().Hex(),
		Timestamp:    b.Time(),
		Size:         uint64(b.Size()),
		GasUsed:      b.GasUsed(),
		GasLimit:     b.GasLimit(),
		Miner:        strings.ToLower(b.Coinbase().Hex()),
		Transactions: txs,
	}
}
