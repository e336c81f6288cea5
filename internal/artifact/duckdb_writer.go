package artifact

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/trade-sampler/internal/logger"
	"github.com/rxtech-lab/trade-sampler/internal/types"
	"github.com/rxtech-lab/trade-sampler/pkg/errors"
	"go.uber.org/zap"
)

// AveragesFile is the parquet file holding one row per persisted client.
const AveragesFile = "averages.parquet"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS trades (
		client_id INTEGER,
		topic TEXT,
		trade_time_ms BIGINT,
		timestamp TEXT,
		symbol TEXT,
		side TEXT,
		size DOUBLE,
		price DOUBLE,
		tick_direction TEXT,
		trade_id TEXT,
		cross_seq BIGINT,
		is_block_trade BOOLEAN
	)`,
	`CREATE TABLE IF NOT EXISTS averages (
		client_id INTEGER,
		average_price DOUBLE,
		event_count INTEGER
	)`,
}

var tradeColumns = []string{
	"client_id", "topic", "trade_time_ms", "timestamp", "symbol", "side", "size", "price",
	"tick_direction", "trade_id", "cross_seq", "is_block_trade",
}

// DuckDBWriter collects artifacts in an in-memory DuckDB database and exports them to parquet.
// Each Write exports the client's trades to client_<id>_data.parquet and refreshes averages.parquet.
type DuckDBWriter struct {
	db       *sql.DB
	dataPath string
	logger   *logger.Logger
	mu       sync.Mutex
}

// NewDuckDBWriter creates a DuckDBWriter that writes into dataPath.
func NewDuckDBWriter(dataPath string, log *logger.Logger) *DuckDBWriter {
	return &DuckDBWriter{
		db:       nil,
		dataPath: dataPath,
		logger:   log.Named("artifact"),
		mu:       sync.Mutex{},
	}
}

// Initialize creates the data directory and the in-memory tables.
func (w *DuckDBWriter) Initialize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dataPath, 0755); err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to create data directory", err)
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to open DuckDB connection", err)
	}

	for _, statement := range schema {
		if _, err := db.Exec(statement); err != nil {
			db.Close()

			return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to create tables", err)
		}
	}

	w.db = db

	return nil
}

// Write stores the client's trades and average and exports them to parquet.
func (w *DuckDBWriter) Write(clientID int, aggregate types.FinalAggregate) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return "", errors.New(errors.ErrCodePersistenceFailed, "writer not initialized")
	}

	if err := w.insert(clientID, aggregate); err != nil {
		return "", errors.Wrapf(errors.ErrCodePersistenceFailed, err, "failed to store artifact of client %d", clientID)
	}

	path := filepath.Join(w.dataPath, FileName(clientID, "parquet"))

	_, err := w.db.Exec(fmt.Sprintf(`
		COPY (SELECT * FROM trades WHERE client_id = %d ORDER BY trade_time_ms ASC, cross_seq ASC)
		TO '%s' (FORMAT PARQUET)
	`, clientID, quotePath(path)))
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodePersistenceFailed, err, "failed to export %s", path)
	}

	averagesPath := filepath.Join(w.dataPath, AveragesFile)

	_, err = w.db.Exec(fmt.Sprintf(`
		COPY (SELECT * FROM averages ORDER BY client_id ASC)
		TO '%s' (FORMAT PARQUET)
	`, quotePath(averagesPath)))
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodePersistenceFailed, err, "failed to export %s", averagesPath)
	}

	w.logger.Debug("Artifact written", zap.Int("client_id", clientID), zap.String("path", path))

	return path, nil
}

// Close releases database resources.
func (w *DuckDBWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to close database", err)
		}

		w.db = nil
	}

	return nil
}

// insert replaces any previous rows of the client inside one transaction.
//
//nolint:funcorder // helper used by Write
func (w *DuckDBWriter) insert(clientID int, aggregate types.FinalAggregate) error {
	sq := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	for _, table := range []string{"trades", "averages"} {
		query, args, err := sq.Delete(table).Where(squirrel.Eq{"client_id": clientID}).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build delete query: %w", err)
		}

		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, batch := range aggregate.Data {
		if len(batch.Data) == 0 {
			continue
		}

		insert := sq.Insert("trades").Columns(tradeColumns...)
		for _, event := range batch.Data {
			insert = insert.Values(
				clientID, batch.Topic, event.TradeTimeMs, event.Timestamp, event.Symbol, event.Side,
				event.Size, event.Price, event.TickDirection, event.TradeID, event.CrossSeq,
				bool(event.IsBlockTrade),
			)
		}

		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert query: %w", err)
		}

		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("failed to insert trades: %w", err)
		}
	}

	for _, average := range aggregate.Average {
		query, args, err := sq.Insert("averages").
			Columns("client_id", "average_price", "event_count").
			Values(clientID, average.AveragePrice, average.EventCount).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert query: %w", err)
		}

		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("failed to insert average: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// quotePath escapes a path for use inside a single-quoted SQL string literal.
func quotePath(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}
