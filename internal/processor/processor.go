// Package processor decodes the transactions routed to a watched
// contract and indexes the decoded records.
package processor

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/YatsauAliaksei/chain-scraper/internal/abidecoder"
	"github.com/YatsauAliaksei/chain-scraper/internal/chainmodel"
	"github.com/YatsauAliaksei/chain-scraper/internal/docstore"
	"github.com/YatsauAliaksei/chain-scraper/internal/searchindex"
)

// Processor ties the document store and search index together around
// a single watched contract's transaction flow.
type Processor struct {
	store *docstore.Store
	index *searchindex.Index
}

// New builds a Processor sharing the given store and index handles.
func New(store *docstore.Store, index *searchindex.Index) *Processor {
	return &Processor{store: store, index: index}
}

// SaveContract inserts a newly-watched contract, propagating any
// duplicate-key error to the caller.
func (p *Processor) SaveContract(ctx context.Context, c chainmodel.Contract) error {
	return p.store.SaveContract(ctx, c)
}

// ProcessContract decodes every transaction's input against the
// contract's ABI and bulk-indexes the ones that decoded successfully.
// Transactions with an unrecognised selector, or whose input does not
// match the declared parameter types, are silently dropped.
func (p *Processor) ProcessContract(ctx context.Context, contract chainmodel.Contract, transactions []chainmodel.Transaction) error {
	abi, err := abidecoder.Parse([]byte(contract.ABIJSON))
	if err != nil {
		return fmt.Errorf("processor: parse abi for %s: %w", contract.Address, err)
	}
	table := abidecoder.BuildSelectorTable(abi)

	records := make([]searchindex.Record, 0, len(transactions))
	for _, tx := range transactions {
		input, ok := abidecoder.Decode(table, tx.Input)
		if !ok {
			continue
		}
		records = append(records, searchindex.NewRecord(tx, input))
	}

	logrus.Infof("decoded %d/%d transactions for contract %s", len(records), len(transactions), contract.Address)

	ok, err := p.index.BulkIndex(ctx, records)
	if err != nil {
		return fmt.Errorf("processor: bulk index for %s: %w", contract.Address, err)
	}
	if !ok {
		return fmt.Errorf("processor: bulk index reported errors for %s", contract.Address)
	}
	return nil
}
