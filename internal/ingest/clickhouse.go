package ingest

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"load_profile/internal/model"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ClickHouseSource reads hourly demand telemetry from a ClickHouse table with
// (timestamp DateTime, demand_mw Float64) columns.
type ClickHouseSource struct {
	conn  driver.Conn
	table string
}

func NewClickHouseSource(addr, database, username, password, table string) (*ClickHouseSource, error) {
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("invalid ClickHouse table name %q", table)
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	return &ClickHouseSource{conn: conn, table: table}, nil
}

func historyQuery(table string) string {
	return fmt.Sprintf(`
		SELECT toStartOfHour(timestamp) AS hour, avg(demand_mw) AS demand
		FROM %s
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY hour
		ORDER BY hour`, table)
}

// History returns hourly averages in [from, to). A zero range reads everything.
func (s *ClickHouseSource) History(ctx context.Context, from, to time.Time) ([]model.DemandRecord, error) {
	if to.IsZero() {
		to = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	rows, err := s.conn.Query(ctx, historyQuery(s.table), from, to)
	if err != nil {
		return nil, fmt.Errorf("querying demand history: %w", err)
	}
	defer rows.Close()

	var records []model.DemandRecord
	for rows.Next() {
		var (
			ts     time.Time
			demand float64
		)
		if err := rows.Scan(&ts, &demand); err != nil {
			return nil, fmt.Errorf("scanning demand row: %w", err)
		}
		records = append(records, model.DemandRecord{Timestamp: ts, DemandMW: demand})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading demand rows: %w", err)
	}
	return records, nil
}

func (s *ClickHouseSource) Close() error {
	return s.conn.Close()
}
