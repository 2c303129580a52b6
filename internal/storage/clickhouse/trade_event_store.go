package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"humanpad/internal/domain"
	"humanpad/internal/storage"
)

// TradeEventStore implements storage.TradeEventStore using ClickHouse.
// MergeTree does not enforce uniqueness, so Append checks event_id
// explicitly before inserting.
type TradeEventStore struct {
	conn *Conn
}

// NewTradeEventStore creates a new TradeEventStore.
func NewTradeEventStore(conn *Conn) *TradeEventStore {
	return &TradeEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeEventStore = (*TradeEventStore)(nil)

// Append adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *TradeEventStore) Append(ctx context.Context, e *domain.TradeEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, e.EventID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO trade_events (
			event_id, token_id, user_id, amount, tokens_received,
			price, new_price, human, risk_score, timestamp_ms
		)
	`

	batch, err := s.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		e.EventID, e.TokenID, e.UserID, e.Amount, e.TokensReceived,
		e.Price, e.NewPrice, e.Human, uint8(e.RiskScore), uint64(e.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByToken retrieves all events for a token, ordered by timestamp ASC.
func (s *TradeEventStore) GetByToken(ctx context.Context, tokenID string) ([]*domain.TradeEvent, error) {
	query := `
		SELECT event_id, token_id, user_id, amount, tokens_received,
		       price, new_price, human, risk_score, timestamp_ms
		FROM trade_events
		WHERE token_id = ?
		ORDER BY timestamp_ms ASC, event_id ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("query by token: %w", err)
	}
	defer rows.Close()

	return scanTradeEvents(rows)
}

// GetByUser retrieves all events for a user, ordered by timestamp ASC.
func (s *TradeEventStore) GetByUser(ctx context.Context, userID string) ([]*domain.TradeEvent, error) {
	query := `
		SELECT event_id, token_id, user_id, amount, tokens_received,
		       price, new_price, human, risk_score, timestamp_ms
		FROM trade_events
		WHERE user_id = ?
		ORDER BY timestamp_ms ASC, event_id ASC
	`

	rows, err := s.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query by user: %w", err)
	}
	defer rows.Close()

	return scanTradeEvents(rows)
}

// GetRecent retrieves the most recent events across all tokens, newest
// first, capped at limit.
func (s *TradeEventStore) GetRecent(ctx context.Context, limit int) ([]*domain.TradeEvent, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT event_id, token_id, user_id, amount, tokens_received,
		       price, new_price, human, risk_score, timestamp_ms
		FROM trade_events
		ORDER BY timestamp_ms DESC, event_id DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	return scanTradeEvents(rows)
}

func (s *TradeEventStore) exists(ctx context.Context, eventID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count() FROM trade_events WHERE event_id = ?`, eventID,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanTradeEvents(rows driver.Rows) ([]*domain.TradeEvent, error) {
	var result []*domain.TradeEvent
	for rows.Next() {
		var (
			e         domain.TradeEvent
			riskScore uint8
			timestamp uint64
		)
		err := rows.Scan(
			&e.EventID, &e.TokenID, &e.UserID, &e.Amount, &e.TokensReceived,
			&e.Price, &e.NewPrice, &e.Human, &riskScore, &timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade event: %w", err)
		}
		e.RiskScore = int(riskScore)
		e.Timestamp = int64(timestamp)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade events: %w", err)
	}
	return result, nil
}
