// Package searchindex bulk-indexes decoded transaction records into
// Elasticsearch, keyed by transaction hash.
package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/YatsauAliaksei/chain-scraper/internal/abidecoder"
	"github.com/YatsauAliaksei/chain-scraper/internal/chainmodel"
)

const transactionsIndex = "transactions"

// Record is the indexed document shape: the persisted transaction
// plus its parsed UTC timestamp and decoded input data.
type Record struct {
	Timestamp   time.Time           `json:"timestamp"`
	Hash        string              `json:"hash"`
	Nonce       uint64              `json:"nonce"`
	BlockHash   string              `json:"blockHash"`
	BlockNumber uint64              `json:"blockNumber"`
	From        string              `json:"from"`
	To          string              `json:"to,omitempty"`
	Value       string              `json:"value"`
	GasPrice    string              `json:"gasPrice"`
	Gas         uint64              `json:"gas"`
	Input       string              `json:"input"`
	InputData   *abidecoder.InputData `json:"input_data"`
}

// NewRecord builds the indexable record for a decoded transaction.
func NewRecord(tx chainmodel.Transaction, input *abidecoder.InputData) Record {
	return Record{
		Timestamp:   time.Unix(int64(tx.Timestamp), 0).UTC(),
		Hash:        tx.Hash,
		Nonce:       tx.Nonce,
		BlockHash:   tx.BlockHash,
		BlockNumber: tx.BlockHeight,
		From:        tx.From,
		To:          tx.To,
		Value:       tx.Value,
		GasPrice:    tx.GasPrice,
		Gas:         tx.Gas,
		Input:       tx.Input,
		InputData:   input,
	}
}

// Index is the Elasticsearch bulk-index adapter.
type Index struct {
	es *elasticsearch.Client
}

// Dial builds an Elasticsearch client pointed at url.
func Dial(url string) (*Index, error) {
	logrus.Infof("connecting to elasticsearch [%s]", url)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{url}})
	if err != nil {
		return nil, fmt.Errorf("searchindex: connect: %w", err)
	}

	return &Index{es: client}, nil
}

// BulkIndex indexes every record, keyed by its transaction hash. An
// empty slice is a no-op success. Document ids repeat on re-indexing
// the same hash, replacing the prior document (idempotent by design).
func (i *Index) BulkIndex(ctx context.Context, records []Record) (bool, error) {
	if len(records) == 0 {
		return true, nil
	}

	var buf bytes.Buffer
	for _, rec := range records {
		meta := map[string]interface{}{"index": map[string]interface{}{"_id": rec.Hash}}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return false, fmt.Errorf("searchindex: marshal bulk meta: %w", err)
		}
		buf.Write(metaJSON)
		buf.WriteByte('\n')

		docJSON, err := json.Marshal(rec)
		if err != nil {
			return false, fmt.Errorf("searchindex: marshal record %s: %w", rec.Hash, err)
		}
		buf.Write(docJSON)
		buf.WriteByte('\n')
	}

	req := esapi.BulkRequest{Index: transactionsIndex, Body: &buf}
	res, err := req.Do(ctx, i.es)
	if err != nil {
		return false, fmt.Errorf("searchindex: bulk request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return false, fmt.Errorf("searchindex: read bulk response: %w", err)
	}

	var parsed struct {
		Errors bool `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false, fmt.Errorf("searchindex: decode bulk response: %w", err)
	}

	if parsed.Errors {
		logrus.Warnf("errors while bulk-indexing transactions: %s", body)
		return false, nil
	}

	logrus.Infof("indexed %d transactions", len(records))
	return true, nil
}
