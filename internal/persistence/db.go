// Package persistence provides SQLite-based save storage.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/heartweek/internal/booking"
	"github.com/talgya/heartweek/internal/calendar"
	"github.com/talgya/heartweek/internal/engine"
	"github.com/talgya/heartweek/internal/journal"
	"github.com/talgya/heartweek/internal/neglect"
	"github.com/talgya/heartweek/internal/stats"
)

// ErrNoState is returned by LoadState when nothing has been saved yet.
var ErrNoState = errors.New("no saved state")

// Meta keys.
const (
	MetaSeed           = "seed"
	MetaCommandsDigest = "commands_digest"
	MetaCalendarDigest = "calendar_digest"
)

// SaveInfo identifies the stored save.
type SaveInfo struct {
	ID      string
	SavedAt time.Time
}

// DB wraps a SQLite connection for save storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	PRAGMA journal_mode=WAL;
	PRAGMA busy_timeout=5000;

	CREATE TABLE IF NOT EXISTS save (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		save_id TEXT NOT NULL,
		saved_at TEXT NOT NULL,
		version INTEGER NOT NULL,
		year INTEGER NOT NULL,
		week INTEGER NOT NULL,
		day INTEGER NOT NULL,
		phase TEXT NOT NULL,
		command_current TEXT,
		command_previous TEXT,
		command_streak INTEGER NOT NULL,
		rng BLOB
	);

	CREATE TABLE IF NOT EXISTS stats (
		stat TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS affection (
		character_id TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS neglect (
		character_id TEXT PRIMARY KEY,
		weeks INTEGER NOT NULL,
		armed INTEGER NOT NULL,
		fuse INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bookings (
		year INTEGER NOT NULL,
		week INTEGER NOT NULL,
		day INTEGER NOT NULL,
		character_id TEXT NOT NULL,
		venue TEXT NOT NULL,
		PRIMARY KEY (year, week, day)
	);

	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY,
		year INTEGER NOT NULL,
		week INTEGER NOT NULL,
		day INTEGER NOT NULL,
		phase TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	CREATE INDEX IF NOT EXISTS idx_neglect_armed ON neglect(armed);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type saveRow struct {
	SaveID   string         `db:"save_id"`
	SavedAt  string         `db:"saved_at"`
	Version  int            `db:"version"`
	Year     int            `db:"year"`
	Week     int            `db:"week"`
	Day      int            `db:"day"`
	Phase    string         `db:"phase"`
	Current  sql.NullString `db:"command_current"`
	Previous sql.NullString `db:"command_previous"`
	Streak   int            `db:"command_streak"`
	RNG      []byte         `db:"rng"`
}

type statRow struct {
	Stat  string `db:"stat"`
	Value int    `db:"value"`
}

type affectionRow struct {
	CharacterID string `db:"character_id"`
	Value       int    `db:"value"`
}

type neglectRow struct {
	CharacterID string `db:"character_id"`
	Weeks       int    `db:"weeks"`
	Armed       bool   `db:"armed"`
	Fuse        int    `db:"fuse"`
}

type bookingRow struct {
	Year        int    `db:"year"`
	Week        int    `db:"week"`
	Day         int    `db:"day"`
	CharacterID string `db:"character_id"`
	Venue       string `db:"venue"`
}

type eventRow struct {
	Seq     uint64 `db:"seq"`
	Year    int    `db:"year"`
	Week    int    `db:"week"`
	Day     int    `db:"day"`
	Phase   string `db:"phase"`
	Kind    string `db:"kind"`
	Payload string `db:"payload"`
}

// SaveState writes the whole simulation state (full replace) and returns the
// id assigned to this save.
func (db *DB) SaveState(st engine.State) (string, error) {
	tx, err := db.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	for _, table := range []string{"stats", "affection", "neglect", "bookings"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return "", fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for s, v := range st.Stats {
		if _, err := tx.Exec("INSERT INTO stats (stat, value) VALUES (?, ?)", s.String(), v); err != nil {
			return "", fmt.Errorf("insert stat %s: %w", s, err)
		}
	}
	for id, v := range st.Affection {
		if _, err := tx.Exec("INSERT INTO affection (character_id, value) VALUES (?, ?)", id, v); err != nil {
			return "", fmt.Errorf("insert affection %s: %w", id, err)
		}
	}

	stmt, err := tx.Preparex("INSERT INTO neglect (character_id, weeks, armed, fuse) VALUES (?, ?, ?, ?)")
	if err != nil {
		return "", err
	}
	defer stmt.Close()
	for id, r := range st.Neglect {
		if _, err := stmt.Exec(id, r.Weeks, r.Armed, r.Fuse); err != nil {
			return "", fmt.Errorf("insert neglect %s: %w", id, err)
		}
	}

	for _, b := range st.Bookings {
		_, err := tx.Exec(`INSERT INTO bookings (year, week, day, character_id, venue)
			VALUES (?, ?, ?, ?, ?)`,
			b.Date.Year, b.Date.Week, int(b.Date.Day), b.CharacterID, b.Venue,
		)
		if err != nil {
			return "", fmt.Errorf("insert booking %s: %w", b.Date, err)
		}
	}

	saveID := uuid.NewString()
	var rng any
	if len(st.RNG) > 0 {
		rng = st.RNG
	}
	_, err = tx.Exec(`INSERT OR REPLACE INTO save
		(id, save_id, saved_at, version, year, week, day, phase,
		 command_current, command_previous, command_streak, rng)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		saveID, time.Now().UTC().Format(time.RFC3339), st.Version,
		st.Date.Year, st.Date.Week, int(st.Date.Day), st.Phase.String(),
		nullable(st.Command.Current), nullable(st.Command.Previous), st.Command.Streak, rng,
	)
	if err != nil {
		return "", fmt.Errorf("write save row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	slog.Info("game state saved", "save_id", saveID, "date", st.Date.String(), "phase", st.Phase.String())
	return saveID, nil
}

// HasState reports whether a state has been saved.
func (db *DB) HasState() (bool, error) {
	var n int
	if err := db.conn.Get(&n, "SELECT COUNT(*) FROM save"); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Info returns the id and time of the stored save.
func (db *DB) Info() (SaveInfo, error) {
	var row struct {
		ID      string `db:"save_id"`
		SavedAt string `db:"saved_at"`
	}
	err := db.conn.Get(&row, "SELECT save_id, saved_at FROM save WHERE id = 1")
	if errors.Is(err, sql.ErrNoRows) {
		return SaveInfo{}, ErrNoState
	}
	if err != nil {
		return SaveInfo{}, err
	}
	at, err := time.Parse(time.RFC3339, row.SavedAt)
	if err != nil {
		return SaveInfo{}, fmt.Errorf("saved_at %q: %w", row.SavedAt, err)
	}
	return SaveInfo{ID: row.ID, SavedAt: at}, nil
}

// LoadState reads the saved simulation state.
func (db *DB) LoadState() (engine.State, error) {
	st := engine.State{
		Stats:     make(map[stats.Stat]int),
		Affection: make(map[string]int),
		Neglect:   make(map[string]neglect.Record),
		Bookings:  []booking.Entry{},
	}

	var head saveRow
	err := db.conn.Get(&head, `SELECT save_id, saved_at, version, year, week, day, phase,
		command_current, command_previous, command_streak, rng FROM save WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return st, ErrNoState
	}
	if err != nil {
		return st, fmt.Errorf("load save row: %w", err)
	}
	st.Version = head.Version
	st.Date = calendar.NewDate(head.Year, head.Week, calendar.Day(head.Day))
	if st.Phase, err = calendar.ParsePhase(head.Phase); err != nil {
		return st, fmt.Errorf("load save row: %w", err)
	}
	st.Command = engine.CommandState{
		Current:  fromNullable(head.Current),
		Previous: fromNullable(head.Previous),
		Streak:   head.Streak,
	}
	if len(head.RNG) > 0 {
		st.RNG = head.RNG
	}

	var statRows []statRow
	if err := db.conn.Select(&statRows, "SELECT stat, value FROM stats"); err != nil {
		return st, fmt.Errorf("load stats: %w", err)
	}
	for _, r := range statRows {
		s, err := stats.Parse(r.Stat)
		if err != nil {
			return st, fmt.Errorf("load stats: %w", err)
		}
		st.Stats[s] = r.Value
	}

	var affRows []affectionRow
	if err := db.conn.Select(&affRows, "SELECT character_id, value FROM affection"); err != nil {
		return st, fmt.Errorf("load affection: %w", err)
	}
	for _, r := range affRows {
		st.Affection[r.CharacterID] = r.Value
	}

	var negRows []neglectRow
	if err := db.conn.Select(&negRows, "SELECT character_id, weeks, armed, fuse FROM neglect"); err != nil {
		return st, fmt.Errorf("load neglect: %w", err)
	}
	for _, r := range negRows {
		st.Neglect[r.CharacterID] = neglect.Record{Weeks: r.Weeks, Armed: r.Armed, Fuse: r.Fuse}
	}

	var bookRows []bookingRow
	if err := db.conn.Select(&bookRows,
		"SELECT year, week, day, character_id, venue FROM bookings ORDER BY year, week, day"); err != nil {
		return st, fmt.Errorf("load bookings: %w", err)
	}
	for _, r := range bookRows {
		st.Bookings = append(st.Bookings, booking.Entry{
			Date:    calendar.NewDate(r.Year, r.Week, calendar.Day(r.Day)),
			Booking: booking.Booking{CharacterID: r.CharacterID, Venue: r.Venue},
		})
	}
	return st, nil
}

// SaveEvents appends journal entries. Entries already stored are skipped.
func (db *DB) SaveEvents(entries []journal.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range entries {
		_, err := tx.Exec(`INSERT OR IGNORE INTO events (seq, year, week, day, phase, kind, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.Seq, e.Date.Year, e.Date.Week, int(e.Date.Day), e.Phase.String(), e.Kind, e.Payload,
		)
		if err != nil {
			return fmt.Errorf("insert event %d: %w", e.Seq, err)
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]journal.Entry, error) {
	var rows []eventRow
	err := db.conn.Select(&rows,
		"SELECT seq, year, week, day, phase, kind, payload FROM events ORDER BY seq DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	out := make([]journal.Entry, 0, len(rows))
	for _, r := range rows {
		phase, err := calendar.ParsePhase(r.Phase)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", r.Seq, err)
		}
		out = append(out, journal.Entry{
			Seq:     r.Seq,
			Date:    calendar.NewDate(r.Year, r.Week, calendar.Day(r.Day)),
			Phase:   phase,
			Kind:    r.Kind,
			Payload: r.Payload,
		})
	}
	return out, nil
}

// LastEventSeq returns the highest stored event sequence number, 0 if none.
func (db *DB) LastEventSeq() (uint64, error) {
	var seq uint64
	err := db.conn.Get(&seq, "SELECT COALESCE(MAX(seq), 0) FROM events")
	return seq, err
}

// ClearEvents drops the event journal; used when a new game starts.
func (db *DB) ClearEvents() error {
	_, err := db.conn.Exec("DELETE FROM events")
	return err
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	return saveMeta(db.conn, key, value)
}

func saveMeta(e sqlx.Execer, key, value string) error {
	_, err := e.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

func nullable(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func fromNullable(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
