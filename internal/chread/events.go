// Package chread provides read access to the ClickHouse moderation_events
// table for the operator API. The write path lives in internal/storage.
package chread

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

// Reader provides read queries against the moderation_events table.
type Reader struct {
	conn   driver.Conn
	logger *zap.Logger
}

// NewReader opens a ClickHouse connection for read queries.
func NewReader(dsn string, logger *zap.Logger) (*Reader, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("NewReader: %w", err)
	}
	if opts.TLS == nil {
		opts.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("NewReader: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("NewReader: %w", err)
	}

	return &Reader{conn: conn, logger: logger}, nil
}

// Close closes the ClickHouse connection.
func (r *Reader) Close() error {
	return r.conn.Close()
}

// EventRow represents a single row from the moderation_events table.
type EventRow struct {
	EventID   string
	Timestamp time.Time
	Kind      string
	Action    string
	GroupID   int64
	UserID    string
	Detail    string
	LatencyMs float32
}

// ListEventsParams holds filters and pagination for event listing.
type ListEventsParams struct {
	Kind      *string
	Action    *string
	UserID    *string
	GroupID   *int64
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	PageSize  int
}

// ListEvents returns paginated, filtered moderation events and the total
// count, newest first.
func (r *Reader) ListEvents(ctx context.Context, params ListEventsParams) ([]EventRow, int, error) {
	conditions := []string{"1 = 1"}
	var args []any

	if params.Kind != nil {
		conditions = append(conditions, "kind = @kind")
		args = append(args, clickhouse.Named("kind", *params.Kind))
	}
	if params.Action != nil {
		conditions = append(conditions, "action = @action")
		args = append(args, clickhouse.Named("action", *params.Action))
	}
	if params.UserID != nil {
		conditions = append(conditions, "user_id = @user_id")
		args = append(args, clickhouse.Named("user_id", *params.UserID))
	}
	if params.GroupID != nil {
		conditions = append(conditions, "group_id = @group_id")
		args = append(args, clickhouse.Named("group_id", *params.GroupID))
	}
	if params.StartTime != nil {
		conditions = append(conditions, "timestamp >= @start_time")
		args = append(args, clickhouse.Named("start_time", *params.StartTime))
	}
	if params.EndTime != nil {
		conditions = append(conditions, "timestamp <= @end_time")
		args = append(args, clickhouse.Named("end_time", *params.EndTime))
	}

	where := strings.Join(conditions, " AND ")
	offset := (params.Page - 1) * params.PageSize

	var total uint64
	countQuery := fmt.Sprintf("SELECT count() FROM moderation_events WHERE %s", where)
	if err := r.conn.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ListEvents count: %w", err)
	}

	dataQuery := fmt.Sprintf(
		"SELECT event_id, timestamp, kind, action, group_id, user_id, detail, latency_ms "+
			"FROM moderation_events WHERE %s ORDER BY timestamp DESC LIMIT %d OFFSET %d",
		where, params.PageSize, offset,
	)
	rows, err := r.conn.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ListEvents query: %w", err)
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(&e.EventID, &e.Timestamp, &e.Kind, &e.Action,
			&e.GroupID, &e.UserID, &e.Detail, &e.LatencyMs); err != nil {
			return nil, 0, fmt.Errorf("ListEvents scan: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListEvents rows: %w", err)
	}

	return events, int(total), nil
}

// ActionCount is one action with its event count.
type ActionCount struct {
	Action string
	Count  int
}

// DayCount is one calendar day with its event count.
type DayCount struct {
	Day   string
	Count int
}

// AnalyticsResult holds aggregate decision counts over a window.
type AnalyticsResult struct {
	Total    int
	ByAction []ActionCount
	ByDay    []DayCount
}

// GetAnalytics aggregates moderation events over the last N days.
func (r *Reader) GetAnalytics(ctx context.Context, days int) (*AnalyticsResult, error) {
	since := time.Now().AddDate(0, 0, -days)
	result := &AnalyticsResult{}

	var total uint64
	err := r.conn.QueryRow(ctx,
		"SELECT count() FROM moderation_events WHERE timestamp >= @since",
		clickhouse.Named("since", since),
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("GetAnalytics total: %w", err)
	}
	result.Total = int(total)

	rows, err := r.conn.Query(ctx,
		"SELECT action, count() AS c FROM moderation_events "+
			"WHERE timestamp >= @since GROUP BY action ORDER BY c DESC",
		clickhouse.Named("since", since),
	)
	if err != nil {
		return nil, fmt.Errorf("GetAnalytics actions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var action string
		var count uint64
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("GetAnalytics actions scan: %w", err)
		}
		result.ByAction = append(result.ByAction, ActionCount{Action: action, Count: int(count)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetAnalytics actions rows: %w", err)
	}

	dayRows, err := r.conn.Query(ctx,
		"SELECT toDate(timestamp) AS d, count() AS c FROM moderation_events "+
			"WHERE timestamp >= @since GROUP BY d ORDER BY d",
		clickhouse.Named("since", since),
	)
	if err != nil {
		return nil, fmt.Errorf("GetAnalytics days: %w", err)
	}
	defer dayRows.Close()
	for dayRows.Next() {
		var day time.Time
		var count uint64
		if err := dayRows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("GetAnalytics days scan: %w", err)
		}
		result.ByDay = append(result.ByDay, DayCount{Day: day.Format("2006-01-02"), Count: int(count)})
	}
	if err := dayRows.Err(); err != nil {
		return nil, fmt.Errorf("GetAnalytics days rows: %w", err)
	}

	return result, nil
}
