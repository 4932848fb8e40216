// Package records persists invocation outcomes and their replay traces in
// SQLite. The engine itself stays stateless; persistence is an outer layer
// the command binaries opt into.
package records

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/perceptlab/cortex/perception"
	"github.com/perceptlab/cortex/replay"
	"github.com/perceptlab/cortex/signals"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS invocation_records (
	record_id          TEXT PRIMARY KEY,
	input_fingerprint  TEXT NOT NULL,
	config_fingerprint TEXT NOT NULL,
	final_state        TEXT NOT NULL,
	stop_reason        TEXT NOT NULL,
	passes_run         INTEGER NOT NULL,
	converged          INTEGER NOT NULL,
	final_delta        REAL NOT NULL,
	signals_json       TEXT NOT NULL,
	created_at         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_input
	ON invocation_records(input_fingerprint);

CREATE TABLE IF NOT EXISTS replay_snapshots (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	record_id    TEXT NOT NULL,
	pass_index   INTEGER NOT NULL,
	state        TEXT NOT NULL,
	signals_json TEXT NOT NULL,
	FOREIGN KEY (record_id) REFERENCES invocation_records(record_id)
);
`

// #endregion schema

// #region record-type

// InvocationRecord is one persisted engine invocation.
type InvocationRecord struct {
	RecordID          string
	InputFingerprint  string
	ConfigFingerprint string
	FinalState        string
	StopReason        string
	PassesRun         int
	Converged         bool
	FinalDelta        float64
	Signals           signals.SensorySignals
	CreatedAt         time.Time
}

// #endregion record-type

// #region store-struct

// Store persists invocation records in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region save

// SaveInvocation inserts a record and its replay trace atomically. A fresh
// record ID is assigned and returned on the record.
func (s *Store) SaveInvocation(rec InvocationRecord, trace *replay.Context) (InvocationRecord, error) {
	rec.RecordID = uuid.New().String()
	rec.CreatedAt = time.Now().UTC()

	sigJSON, err := json.Marshal(replay.FromSignals(rec.Signals))
	if err != nil {
		return InvocationRecord{}, fmt.Errorf("marshal signals: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return InvocationRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	converged := 0
	if rec.Converged {
		converged = 1
	}
	_, err = tx.Exec(
		`INSERT INTO invocation_records
		 (record_id, input_fingerprint, config_fingerprint, final_state, stop_reason,
		  passes_run, converged, final_delta, signals_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RecordID, rec.InputFingerprint, rec.ConfigFingerprint, rec.FinalState,
		rec.StopReason, rec.PassesRun, converged, rec.FinalDelta, string(sigJSON),
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return InvocationRecord{}, fmt.Errorf("insert record: %w", err)
	}

	if trace != nil {
		for _, snap := range trace.Snapshots {
			snapJSON, err := json.Marshal(replay.FromSignals(snap.Signals))
			if err != nil {
				return InvocationRecord{}, fmt.Errorf("marshal snapshot: %w", err)
			}
			_, err = tx.Exec(
				`INSERT INTO replay_snapshots (record_id, pass_index, state, signals_json)
				 VALUES (?, ?, ?, ?)`,
				rec.RecordID, snap.PassIndex, snap.State.String(), string(snapJSON),
			)
			if err != nil {
				return InvocationRecord{}, fmt.Errorf("insert snapshot: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return InvocationRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// #endregion save

// #region get

// GetInvocation retrieves a record by ID.
func (s *Store) GetInvocation(recordID string) (InvocationRecord, error) {
	row := s.db.QueryRow(
		`SELECT record_id, input_fingerprint, config_fingerprint, final_state, stop_reason,
		        passes_run, converged, final_delta, signals_json, created_at
		 FROM invocation_records WHERE record_id = ?`, recordID,
	)
	rec, err := scanRecord(row)
	if err != nil {
		return InvocationRecord{}, fmt.Errorf("get record %s: %w", recordID, err)
	}
	return rec, nil
}

// GetTrace reconstructs the replay context persisted with a record.
func (s *Store) GetTrace(recordID string) (*replay.Context, error) {
	rec, err := s.GetInvocation(recordID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT pass_index, state, signals_json FROM replay_snapshots
		 WHERE record_id = ? ORDER BY pass_index ASC`, recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	ctx := &replay.Context{
		InputFingerprint:  rec.InputFingerprint,
		ConfigFingerprint: rec.ConfigFingerprint,
	}
	for rows.Next() {
		var passIndex int
		var stateName, sigJSON string
		if err := rows.Scan(&passIndex, &stateName, &sigJSON); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var fs replay.FixtureSignals
		if err := json.Unmarshal([]byte(sigJSON), &fs); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		ctx.Snapshots = append(ctx.Snapshots, replay.Snapshot{
			PassIndex: passIndex,
			Signals:   fs.ToSignals(),
			State:     stateByName(stateName),
		})
	}
	return ctx, rows.Err()
}

// ListInvocations returns the most recent records.
func (s *Store) ListInvocations(limit int) ([]InvocationRecord, error) {
	rows, err := s.db.Query(
		`SELECT record_id, input_fingerprint, config_fingerprint, final_state, stop_reason,
		        passes_run, converged, final_delta, signals_json, created_at
		 FROM invocation_records ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []InvocationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FindByInput returns records for one input fingerprint, newest first.
func (s *Store) FindByInput(inputFingerprint string) ([]InvocationRecord, error) {
	rows, err := s.db.Query(
		`SELECT record_id, input_fingerprint, config_fingerprint, final_state, stop_reason,
		        passes_run, converged, final_delta, signals_json, created_at
		 FROM invocation_records WHERE input_fingerprint = ? ORDER BY created_at DESC`,
		inputFingerprint,
	)
	if err != nil {
		return nil, fmt.Errorf("find by input: %w", err)
	}
	defer rows.Close()

	var records []InvocationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (InvocationRecord, error) {
	var rec InvocationRecord
	var converged int
	var sigJSON, createdStr string
	err := row.Scan(&rec.RecordID, &rec.InputFingerprint, &rec.ConfigFingerprint,
		&rec.FinalState, &rec.StopReason, &rec.PassesRun, &converged,
		&rec.FinalDelta, &sigJSON, &createdStr)
	if err != nil {
		return InvocationRecord{}, err
	}
	rec.Converged = converged != 0

	var fs replay.FixtureSignals
	if err := json.Unmarshal([]byte(sigJSON), &fs); err != nil {
		return InvocationRecord{}, fmt.Errorf("unmarshal signals: %w", err)
	}
	rec.Signals = fs.ToSignals()
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

func stateByName(name string) perception.State {
	switch name {
	case "pattern":
		return perception.StatePattern
	case "structure":
		return perception.StateStructure
	case "proto_agency":
		return perception.StateProtoAgency
	}
	return perception.StateCarrier
}

// #endregion get
