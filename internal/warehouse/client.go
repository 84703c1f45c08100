// Package warehouse bulk-loads processed tables into Snowflake with replace
// semantics: each load truncates the target table and inserts the full
// processed set.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/snowflakedb/gosnowflake" // Snowflake driver

	"github.com/ignite/nba-analytics/internal/config"
	"github.com/ignite/nba-analytics/internal/etl"
	"github.com/ignite/nba-analytics/internal/pkg/logger"
)

// insertBatchSize bounds the rows per INSERT statement so the generated SQL
// stays within driver limits.
const insertBatchSize = 500

// Client loads tables into Snowflake over database/sql.
type Client struct {
	db *sql.DB
}

// NewClient opens a Snowflake connection from the configuration. The
// connection string, when present, wins over the individual fields.
func NewClient(cfg config.SnowflakeConfig) (*Client, error) {
	dsn := cfg.ConnectionString
	if dsn == "" {
		// Format: user:password@account/database/schema?warehouse=xxx
		dsn = fmt.Sprintf("%s:%s@%s/%s/%s",
			cfg.User,
			url.QueryEscape(cfg.Password),
			cfg.Account,
			cfg.Database,
			cfg.Schema,
		)
		if cfg.Warehouse != "" {
			dsn += "?warehouse=" + cfg.Warehouse
		}
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening snowflake connection: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Client{db: db}, nil
}

// NewClientFromDB wraps an existing database handle. Used by tests.
func NewClientFromDB(db *sql.DB) *Client {
	return &Client{db: db}
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping tests the database connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// BulkLoad replaces the contents of a table with the given records inside a
// single transaction: create if absent, truncate, insert in batches.
func (c *Client) BulkLoad(ctx context.Context, table string, records []etl.Record) error {
	columns := etl.ColumnNames(records)
	if len(columns) == 0 {
		return fmt.Errorf("bulk load %s: no columns to load", table)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction for %s: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, createTableSQL(table, columns, records)); err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s", table)); err != nil {
		return fmt.Errorf("truncating table %s: %w", table, err)
	}

	for start := 0; start < len(records); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		query, args := insertSQL(table, columns, batch)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load of %s: %w", table, err)
	}

	logger.Info("bulk load committed", "table", table, "rows", len(records))
	return nil
}

// createTableSQL builds a CREATE TABLE IF NOT EXISTS statement with column
// types inferred from the first non-null value seen per column.
func createTableSQL(table string, columns []string, records []etl.Record) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("%s %s", col, columnType(col, records))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))
}

func columnType(col string, records []etl.Record) string {
	for _, rec := range records {
		switch rec[col].(type) {
		case nil:
			continue
		case float64, float32, int, int64:
			return "DOUBLE"
		case bool:
			return "BOOLEAN"
		default:
			return "VARCHAR"
		}
	}
	return "VARCHAR"
}

// insertSQL builds one multi-row INSERT with ? placeholders. Columns are
// already sorted, so the statement text is deterministic for a given batch
// shape.
func insertSQL(table string, columns []string, batch []etl.Record) (string, []interface{}) {
	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	rows := make([]string, len(batch))
	args := make([]interface{}, 0, len(batch)*len(columns))
	for i, rec := range batch {
		rows[i] = placeholders
		for _, col := range columns {
			args = append(args, rec[col])
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		table, strings.Join(columns, ", "), strings.Join(rows, ", "))
	return query, args
}

// TableRowCount returns the current row count of a warehouse table.
func (c *Client) TableRowCount(ctx context.Context, table string) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	if err := c.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting rows of %s: %w", table, err)
	}
	return count, nil
}
