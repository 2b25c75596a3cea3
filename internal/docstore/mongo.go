// Package docstore persists raw blocks and transactions and owns the
// watched-contract collection backing the scraper's checkpoints.
package docstore

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/YatsauAliaksei/chain-scraper/internal/chainmodel"
)

const (
	collectionContracts    = "contracts"
	collectionBlocks       = "blocks"
	collectionTransactions = "transactions"

	// transactionBulkChunk caps how many transaction documents are
	// sent in a single bulk insert, to respect the document store's
	// request-size limits.
	transactionBulkChunk = 20_000
)

// Store is the document-store adapter (MongoDB).
type Store struct {
	db *mongo.Database
}

// Dial connects to MongoDB and returns a Store bound to the
// "chain_scraper" database.
func Dial(ctx context.Context, url string) (*Store, error) {
	logrus.Infof("connecting to mongo [%s]", url)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("docstore: connect: %w", err)
	}

	return &Store{db: client.Database("chain_scraper")}, nil
}

// Init ensures the contracts, blocks and transactions collections
// exist. Creation is idempotent.
func (s *Store) Init(ctx context.Context) error {
	existing, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("docstore: list collections: %w", err)
	}

	have := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		have[name] = struct{}{}
	}

	for _, name := range []string{collectionContracts, collectionBlocks, collectionTransactions} {
		if _, ok := have[name]; ok {
			continue
		}
		logrus.Debugf("creating collection: %s", name)
		if err := s.db.CreateCollection(ctx, name); err != nil {
			return fmt.Errorf("docstore: create collection %s: %w", name, err)
		}
	}

	return nil
}

// ListWatchedContracts returns every watched contract, unordered.
func (s *Store) ListWatchedContracts(ctx context.Context) ([]chainmodel.Contract, error) {
	cur, err := s.db.Collection(collectionContracts).Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("docstore: find contracts: %w", err)
	}
	defer cur.Close(ctx)

	var contracts []chainmodel.Contract
	if err := cur.All(ctx, &contracts); err != nil {
		return nil, fmt.Errorf("docstore: decode contracts: %w", err)
	}
	return contracts, nil
}

// SaveContract inserts a new watched contract, propagating a
// duplicate-key error to the caller.
func (s *Store) SaveContract(ctx context.Context, c chainmodel.Contract) error {
	_, err := s.db.Collection(collectionContracts).InsertOne(ctx, c)
	if err != nil {
		return fmt.Errorf("docstore: save contract %s: %w", c.ID, err)
	}
	return nil
}

// UpdateWatchedContract upserts a contract by id, used to persist
// advanced processed_range checkpoints.
func (s *Store) UpdateWatchedContract(ctx context.Context, c chainmodel.Contract) error {
	_, err := s.db.Collection(collectionContracts).ReplaceOne(
		ctx,
		bson.D{{Key: "_id", Value: c.ID}},
		c,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("docstore: update contract %s: %w", c.ID, err)
	}
	return nil
}

// SaveChainBatch persists every block (stripped of its transactions
// array) and every transaction carried by the batch. Blocks and
// transactions are inserted concurrently; transactions are chunked to
// respect bulk-insert request-size limits. Failure of either side is
// reported to the caller; partial success is not rolled back — the
// scraper's checkpoint discipline is what guarantees forward progress
// without gaps.
func (s *Store) SaveChainBatch(ctx context.Context, batch chainmodel.ChainBatch) error {
	if len(batch.Blocks) == 0 {
		return nil
	}

	blockErrCh := make(chan error, 1)
	txErrCh := make(chan error, 1)

	go func() { blockErrCh <- s.saveBlocks(ctx, batch.Blocks) }()
	go func() { txErrCh <- s.saveTransactions(ctx, batch.Transactions()) }()

	blockErr := <-blockErrCh
	txErr := <-txErrCh

	if blockErr != nil {
		return blockErr
	}
	return txErr
}

func (s *Store) saveBlocks(ctx context.Context, blocks []chainmodel.Block) error {
	docs := make([]interface{}, len(blocks))
	for i, b := range blocks {
		b.Transactions = nil
		docs[i] = b
	}

	if _, err := s.db.Collection(collectionBlocks).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("docstore: insert blocks: %w", err)
	}
	return nil
}

func (s *Store) saveTransactions(ctx context.Context, txs []chainmodel.Transaction) error {
	for start := 0; start < len(txs); start += transactionBulkChunk {
		end := start + transactionBulkChunk
		if end > len(txs) {
			end = len(txs)
		}

		chunk := txs[start:end]
		docs := make([]interface{}, len(chunk))
		for i, tx := range chunk {
			docs[i] = tx
		}

		if _, err := s.db.Collection(collectionTransactions).InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("docstore: insert transactions [%d:%d): %w", start, end, err)
		}
	}
	return nil
}

// FindHighestBlock returns the highest-height block persisted so far,
// or nil if the collection is empty.
func (s *Store) FindHighestBlock(ctx context.Context) (*chainmodel.Block, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})

	var block chainmodel.Block
	err := s.db.Collection(collectionBlocks).FindOne(ctx, bson.D{}, opts).Decode(&block)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: find highest block: %w", err)
	}
	return &block, nil
}

// FindTransactionsTo returns every persisted transaction addressed to
// the given (lower-case hex) address.
func (s *Store) FindTransactionsTo(ctx context.Context, address string) ([]chainmodel.Transaction, error) {
	cur, err := s.db.Collection(collectionTransactions).Find(ctx, bson.D{{Key: "to", Value: address}})
	if err != nil {
		return nil, fmt.Errorf("docstore: find transactions to %s: %w", address, err)
	}
	defer cur.Close(ctx)

	var txs []chainmodel.Transaction
	if err := cur.All(ctx, &txs); err != nil {
		return nil, fmt.Errorf("docstore: decode transactions: %w", err)
	}
	return txs, nil
}
