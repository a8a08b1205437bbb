package rowsource

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Auxiliary total datasets are named by convention relative to the
// worksheet table.
const (
	RowTotalsSuffix = "_row_totals"
	ColTotalsSuffix = "_col_totals"
)

// streamState holds one open server-side cursor used for chunked fetching
// of large datasets.
type streamState struct {
	SessionID  string
	CursorName string
	Conn       *sql.Conn
	Tx         *sql.Tx
	CreatedAt  time.Time
	LastUsed   time.Time
	sync.Mutex
}

// Source fetches worksheet datasets as flat rows for pivoting. Small
// datasets go through FetchDataset; large exports open a cursor stream and
// pull chunks so the caller can interleave serialization.
type Source struct {
	db          *sql.DB
	streams     map[string]*streamState
	mu          sync.Mutex
	idleTimeout time.Duration
	absTimeout  time.Duration
	maxStreams  int
	cleanupStop chan struct{}
}

// Open connects to Postgres and initializes the stream registry with tuning
// parameters.
func Open(connStr string, maxConns int, idleTimeout, absTimeout time.Duration) (*Source, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns / 2)
	db.SetConnMaxLifetime(absTimeout)
	db.SetConnMaxIdleTime(idleTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Source{
		db:          db,
		streams:     make(map[string]*streamState),
		idleTimeout: idleTimeout,
		absTimeout:  absTimeout,
		maxStreams:  maxConns,
		cleanupStop: make(chan struct{}),
	}
	s.startCleanupRoutine()
	return s, nil
}

// Close shuts down the source and its cleanup routine.
func (s *Source) Close() error {
	close(s.cleanupStop)
	return s.db.Close()
}

// FetchDataset loads the full worksheet table in one pass.
func (s *Source) FetchDataset(ctx context.Context, worksheet string) ([]map[string]interface{}, error) {
	query := "SELECT * FROM " + quoteIdent(worksheet)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dataset %s: %w", worksheet, err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// FetchTotals loads the conventionally named precomputed total datasets.
// Missing auxiliary tables are not an error: the pivot simply runs without
// that total dimension.
func (s *Source) FetchTotals(ctx context.Context, worksheet string) (rowTotals, colTotals []map[string]interface{}, err error) {
	if s.tableExists(ctx, worksheet+RowTotalsSuffix) {
		rowTotals, err = s.FetchDataset(ctx, worksheet+RowTotalsSuffix)
		if err != nil {
			return nil, nil, err
		}
	}
	if s.tableExists(ctx, worksheet+ColTotalsSuffix) {
		colTotals, err = s.FetchDataset(ctx, worksheet+ColTotalsSuffix)
		if err != nil {
			return rowTotals, nil, err
		}
	}
	return rowTotals, colTotals, nil
}

func (s *Source) tableExists(ctx context.Context, name string) bool {
	var reg sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT to_regclass($1)::text", name).Scan(&reg)
	return err == nil && reg.Valid
}

// OpenStream declares a server-side cursor over the worksheet for chunked
// fetching. Reusing a session id returns the existing stream.
func (s *Source) OpenStream(ctx context.Context, sid, worksheet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, exists := s.streams[sid]; exists {
		state.Lock()
		state.LastUsed = time.Now()
		state.Unlock()
		return nil
	}
	if s.maxStreams > 0 && len(s.streams) >= s.maxStreams {
		return fmt.Errorf("stream capacity reached (max %d)", s.maxStreams)
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	cursorName := "pvt_" + uuid.New().String()[:8]
	declareSQL := fmt.Sprintf("DECLARE %s CURSOR FOR SELECT * FROM %s", cursorName, quoteIdent(worksheet))
	if _, err := tx.ExecContext(ctx, declareSQL); err != nil {
		tx.Rollback()
		conn.Close()
		return fmt.Errorf("failed to declare cursor: %w", err)
	}

	s.streams[sid] = &streamState{
		SessionID:  sid,
		CursorName: cursorName,
		Conn:       conn,
		Tx:         tx,
		CreatedAt:  time.Now(),
		LastUsed:   time.Now(),
	}
	return nil
}

// FetchChunk pulls the next batch of rows from an open stream. An empty
// result means the stream is exhausted.
func (s *Source) FetchChunk(ctx context.Context, sid string, count int) ([]map[string]interface{}, error) {
	s.mu.Lock()
	state, ok := s.streams[sid]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no open stream for session %s", sid)
	}

	state.Lock()
	defer state.Unlock()
	state.LastUsed = time.Now()

	fetchSQL := fmt.Sprintf("FETCH FORWARD %d FROM %q", count, state.CursorName)
	rows, err := state.Tx.QueryContext(ctx, fetchSQL)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// CloseStream releases the cursor of one session.
func (s *Source) CloseStream(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.streams[sid]; ok {
		state.Lock()
		s.removeStream(sid, state)
		state.Unlock()
	}
}

func (s *Source) startCleanupRoutine() {
	ticker := time.NewTicker(30 * time.Second)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.cleanupTimeouts()
			case <-s.cleanupStop:
				ticker.Stop()
				return
			}
		}
	}()
}

func (s *Source) cleanupTimeouts() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for sid, state := range s.streams {
		state.Lock()
		if now.Sub(state.CreatedAt) > s.absTimeout || now.Sub(state.LastUsed) > s.idleTimeout {
			slog.Info("Cleaning up expired stream", "cursorname", state.CursorName)
			s.removeStream(sid, state)
		}
		state.Unlock()
	}
}

func (s *Source) removeStream(sid string, state *streamState) {
	if state.Tx != nil {
		state.Tx.Rollback()
	}
	if state.Conn != nil {
		state.Conn.Close()
	}
	delete(s.streams, sid)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func scanRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		pointers := make([]interface{}, len(cols))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{})
		for i, col := range cols {
			val := values[i]
			if b, ok := val.([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = val
			}
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
