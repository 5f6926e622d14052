package repository

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/m-mizutani/goerr/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/m-mizutani/warren/pkg/model"
)

// sqliteRepo implements Repository on a local SQLite database. A single write
// connection with WAL keeps appends serialized without blocking readers.
type sqliteRepo struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and ensures the schema.
func NewSQLite(ctx context.Context, path string) (Repository, error) {
	if path == "" {
		return nil, goerr.New("database path is required")
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	repo := &sqliteRepo{db: db}
	if err := repo.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *sqliteRepo) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			user_text TEXT NOT NULL,
			agent_text TEXT NOT NULL,
			tools TEXT NOT NULL,
			embedding BLOB
		);`,
		`CREATE INDEX IF NOT EXISTS idx_turns_created_at ON turns(created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return goerr.Wrap(err, "failed to ensure schema")
		}
	}
	return nil
}

func (r *sqliteRepo) PutTurn(ctx context.Context, turn *model.Turn) error {
	tools, err := json.Marshal(turn.Tools)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal tool names")
	}

	var embedding []byte
	if turn.HasEmbedding() {
		embedding = encodeVector(turn.Embedding)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO turns (id, created_at, user_text, agent_text, tools, embedding) VALUES (?, ?, ?, ?, ?, ?)`,
		string(turn.ID), turn.CreatedAt.UnixNano(), turn.UserText, turn.AgentText, string(tools), embedding,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to insert turn", goerr.V("turn_id", turn.ID))
	}
	return nil
}

func (r *sqliteRepo) ListTurns(ctx context.Context, offset, limit int) ([]*model.Turn, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at, user_text, agent_text, tools, embedding FROM turns ORDER BY created_at, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list turns")
	}
	defer rows.Close()

	return scanTurns(rows)
}

func (r *sqliteRepo) ListTurnsByRange(ctx context.Context, start, end time.Time) ([]*model.Turn, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at, user_text, agent_text, tools, embedding FROM turns WHERE created_at >= ? AND created_at < ? ORDER BY created_at, id`,
		start.UnixNano(), end.UnixNano(),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list turns by range")
	}
	defer rows.Close()

	return scanTurns(rows)
}

func (r *sqliteRepo) RecentTurns(ctx context.Context, n int) ([]*model.Turn, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at, user_text, agent_text, tools, embedding FROM turns ORDER BY created_at DESC, id DESC LIMIT ?`,
		n,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list recent turns")
	}
	defer rows.Close()

	turns, err := scanTurns(rows)
	if err != nil {
		return nil, err
	}

	// Restore chronological order
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (r *sqliteRepo) Stats(ctx context.Context) (*TurnStats, error) {
	var count int64
	var oldest, newest sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(created_at), MAX(created_at) FROM turns`,
	).Scan(&count, &oldest, &newest)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query stats")
	}

	stats := &TurnStats{Count: count}
	if oldest.Valid {
		stats.Oldest = time.Unix(0, oldest.Int64)
	}
	if newest.Valid {
		stats.Newest = time.Unix(0, newest.Int64)
	}
	return stats, nil
}

func (r *sqliteRepo) DeleteOldestTurns(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM turns WHERE id IN (SELECT id FROM turns ORDER BY created_at, id LIMIT ?)`,
		n,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to delete oldest turns")
	}
	return nil
}

func (r *sqliteRepo) DeleteAllTurns(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM turns`); err != nil {
		return goerr.Wrap(err, "failed to delete all turns")
	}
	return nil
}

func (r *sqliteRepo) Close() error {
	if err := r.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close database")
	}
	return nil
}

func scanTurns(rows *sql.Rows) ([]*model.Turn, error) {
	var turns []*model.Turn
	for rows.Next() {
		var (
			id, userText, agentText, tools string
			createdAt                      int64
			embedding                      []byte
		)
		if err := rows.Scan(&id, &createdAt, &userText, &agentText, &tools, &embedding); err != nil {
			return nil, goerr.Wrap(err, "failed to scan turn row")
		}

		turn := &model.Turn{
			ID:        model.TurnID(id),
			CreatedAt: time.Unix(0, createdAt),
			UserText:  userText,
			AgentText: agentText,
		}
		if err := json.Unmarshal([]byte(tools), &turn.Tools); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal tool names", goerr.V("turn_id", id))
		}
		if len(embedding) > 0 {
			vec, err := decodeVector(embedding)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to decode embedding", goerr.V("turn_id", id))
			}
			turn.Embedding = vec
		}

		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate turn rows")
	}
	return turns, nil
}

// encodeVector packs float32 values as little-endian IEEE 754 bits so the
// vector survives a restart bit-for-bit.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, goerr.New("invalid embedding blob length", goerr.V("len", len(buf)))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}
