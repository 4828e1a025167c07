package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	serrors "github.com/turtacn/Strata/pkg/errors"
	"github.com/turtacn/Strata/pkg/state"
)

// SQLiteStore keeps one row per name. Use ":memory:" for a throwaway
// database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, serrors.New(serrors.ErrCodePersistFailed, "NewSQLiteStore", "open sqlite database", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, serrors.New(serrors.ErrCodePersistFailed, "NewSQLiteStore", "initialize schema", err)
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS last_states (
		name TEXT PRIMARY KEY,
		family TEXT NOT NULL,
		state TEXT NOT NULL,
		time_ns INTEGER NOT NULL,
		cause TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, name string, p state.Persisted) error {
	var cause []byte
	if p.Cause != nil {
		var err error
		if cause, err = json.Marshal(p.Cause); err != nil {
			return serrors.New(serrors.ErrCodePersistFailed, "SQLiteStore.Save", "marshal cause of "+name, err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO last_states (name, family, state, time_ns, cause) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			family = excluded.family,
			state = excluded.state,
			time_ns = excluded.time_ns,
			cause = excluded.cause`,
		name, p.Family, p.State, p.Time.UnixNano(), nullable(cause),
	)
	if err != nil {
		return serrors.New(serrors.ErrCodePersistFailed, "SQLiteStore.Save", "upsert "+name, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, name string) (state.Persisted, bool, error) {
	var (
		p     state.Persisted
		ns    int64
		cause sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT family, state, time_ns, cause FROM last_states WHERE name = ?", name,
	).Scan(&p.Family, &p.State, &ns, &cause)
	if errors.Is(err, sql.ErrNoRows) {
		return state.Persisted{}, false, nil
	}
	if err != nil {
		return state.Persisted{}, false, serrors.New(serrors.ErrCodePersistFailed, "SQLiteStore.Load", "query "+name, err)
	}

	p.Time = time.Unix(0, ns).UTC()
	if cause.Valid {
		p.Cause = &state.Cause{}
		if err := json.Unmarshal([]byte(cause.String), p.Cause); err != nil {
			return state.Persisted{}, false, serrors.New(serrors.ErrCodePersistFailed, "SQLiteStore.Load", "unmarshal cause of "+name, err)
		}
	}
	return p, true, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullable(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

// Personal.AI order the ending
