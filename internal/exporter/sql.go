package exporter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"climatedash/pkg/contracts/domain"
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// UnifiedTableName is the table the SQL exporter (re)creates.
const UnifiedTableName = "unified"

// SQLExporter writes the unified table into a SQL database.
type SQLExporter struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// OpenSQLExporter opens and pings the database.
func OpenSQLExporter(ctx context.Context, driver, dsn string, logger *slog.Logger) (*SQLExporter, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	return &SQLExporter{db: db, driver: driver, logger: logger}, nil
}

// DB returns the underlying handle.
func (e *SQLExporter) DB() *sql.DB {
	return e.db
}

// Close closes the database.
func (e *SQLExporter) Close() error {
	return e.db.Close()
}

// Export drops and recreates the unified table and inserts every row in one
// transaction.
func (e *SQLExporter) Export(ctx context.Context, table domain.Table) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DROP TABLE IF EXISTS " + UnifiedTableName,
		createTableSQL(),
		fmt.Sprintf(`CREATE INDEX idx_%[1]s_country_year ON %[1]s ("Country", "Year")`, UnifiedTableName),
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to prepare table: %w", err)
		}
	}

	insert, err := tx.PrepareContext(ctx, e.insertSQL())
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer insert.Close()

	for i, rec := range table.Records {
		args := make([]interface{}, 0, len(domain.UnifiedColumns))
		args = append(args, rec.Country, rec.Year)
		for _, m := range domain.UnifiedMetrics {
			args = append(args, nullFloat(rec.Values[m]))
		}
		if _, err := insert.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	e.logger.InfoContext(ctx, "Unified dataset exported",
		slog.String("driver", e.driver),
		slog.String("table", UnifiedTableName),
		slog.Int("rows", table.Len()))
	return nil
}

func createTableSQL() string {
	cols := []string{`"Country" TEXT NOT NULL`, `"Year" INTEGER NOT NULL`}
	for _, m := range domain.UnifiedMetrics {
		cols = append(cols, fmt.Sprintf("%q DOUBLE PRECISION", string(m)))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", UnifiedTableName, strings.Join(cols, ", "))
}

func (e *SQLExporter) insertSQL() string {
	cols := make([]string, len(domain.UnifiedColumns))
	params := make([]string, len(domain.UnifiedColumns))
	for i, c := range domain.UnifiedColumns {
		cols[i] = fmt.Sprintf("%q", c)
		if e.driver == DriverPostgres {
			params[i] = fmt.Sprintf("$%d", i+1)
		} else {
			params[i] = "?"
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		UnifiedTableName, strings.Join(cols, ", "), strings.Join(params, ", "))
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
