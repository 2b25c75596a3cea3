// Package chainmodel holds the data types shared across the scraper:
// addresses, raw blocks/transactions, watched contracts and the chain
// batches the traversal engine emits.
package chainmodel

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NormalizeAddress renders an address as a lower-case 0x-prefixed hex
// string, the form used for routing and comparison throughout the
// scraper.
func NormalizeAddress(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// Block mirrors the node's block metadata plus the transactions it
// carries. Height is unique and monotonically assigned by the node.
type Block struct {
	Height     uint64        `bson:"_id" json:"height"`
	Hash       string        `bson:"hash" json:"hash"`
	ParentHash string        `bson:"parentHash" json:"parent_hash"`
	Timestamp  uint64        `bson:"timestamp" json:"timestamp"`
	Size       uint64        `bson:"size" json:"size"`
	GasUsed    uint64        `bson:"gasUsed" json:"gas_used"`
	GasLimit   uint64        `bson:"gasLimit" json:"gas_limit"`
	Miner      string        `bson:"miner" json:"miner"`
	Transactions []Transaction `bson:"transactions,omitempty" json:"-"`
}

// Transaction is the raw, node-reported transaction. To is empty only
// for contract-creation transactions; those are never routed to the
// processor.
type Transaction struct {
	Hash        string `bson:"hash" json:"hash"`
	Nonce       uint64 `bson:"nonce" json:"nonce"`
	BlockHash   string `bson:"blockHash" json:"block_hash"`
	BlockHeight uint64 `bson:"blockNumber" json:"block_number"`
	Index       uint64 `bson:"transactionIndex" json:"transaction_index"`
	From        string `bson:"from" json:"from"`
	To          string `bson:"to,omitempty" json:"to,omitempty"`
	Value       string `bson:"value" json:"value"`
	GasPrice    string `bson:"gasPrice" json:"gas_price"`
	Gas         uint64 `bson:"gas" json:"gas"`
	Input       string `bson:"input" json:"input"`
	Raw         string `bson:"raw,omitempty" json:"raw,omitempty"`
	// Timestamp is propagated from the owning block; zero until the
	// block it belongs to has been resolved.
	Timestamp uint64 `bson:"timestamp" json:"timestamp"`
}

// HasRecipient reports whether the transaction is not a contract
// creation, i.e. it carries a non-empty To address.
func (t Transaction) HasRecipient() bool {
	return t.To != ""
}

// ProcessedRange is the half-open interval of block heights already
// fully scanned for a given watched contract. Invariant: Start <= End.
type ProcessedRange struct {
	Start int64 `bson:"start" json:"start"`
	End   int64 `bson:"end" json:"end"`
}

// Set reports whether the range has ever been assigned.
func (r *ProcessedRange) Set() bool {
	return r != nil
}

// Contract is a watched smart contract: its address, ABI, and the
// heights already scanned on its behalf.
type Contract struct {
	ID             string          `bson:"_id" json:"id"`
	Address        string          `bson:"address" json:"address"`
	ABIJSON        string          `bson:"abi_json" json:"abi_json"`
	ProcessedRange *ProcessedRange `bson:"processed_range,omitempty" json:"processed_range,omitempty"`
}

// NewContract builds a watched contract keyed by its lower-cased
// address.
func NewContract(address, abiJSON string) Contract {
	addr := strings.ToLower(address)
	return Contract{
		ID:      addr,
		Address: addr,
		ABIJSON: abiJSON,
	}
}

// ChainBatch is the unit the traversal engine yields to its consumer:
// a half-open height range plus the blocks observed within it that
// matched the watched-address filter.
type ChainBatch struct {
	Lo     uint64
	Hi     uint64
	Blocks []Block
}

// Transactions flattens every transaction across the batch's blocks,
// stamping each with its owning block's timestamp.
func (b ChainBatch) Transactions() []Transaction {
	var out []Transaction
	for _, blk := range b.Blocks {
		for _, tx := range blk.Transactions {
			tx.Timestamp = blk.Timestamp
			out = append(out, tx)
		}
	}
	return out
}
