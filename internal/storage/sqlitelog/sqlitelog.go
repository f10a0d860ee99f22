// Package sqlitelog records readings in a SQLite database, one row per
// acquisition, tagged with the session that produced it.
package sqlitelog

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"weatherwatcher/internal/gps"
	"weatherwatcher/internal/logger"
	"weatherwatcher/internal/sensor"
	"weatherwatcher/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	session           TEXT    NOT NULL,
	ts                INTEGER NOT NULL,
	temperature       REAL    NOT NULL,
	humidity          REAL    NOT NULL,
	pressure          REAL    NOT NULL,
	luminosity        REAL    NOT NULL,
	temperature_fault INTEGER NOT NULL,
	humidity_fault    INTEGER NOT NULL,
	pressure_fault    INTEGER NOT NULL,
	luminosity_fault  INTEGER NOT NULL,
	latitude          REAL,
	longitude         REAL
);
CREATE INDEX IF NOT EXISTS readings_session_ts ON readings (session, ts);
`

const insertReading = `
INSERT INTO readings (
	session, ts, temperature, humidity, pressure, luminosity,
	temperature_fault, humidity_fault, pressure_fault, luminosity_fault,
	latitude, longitude
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Row is a stored reading.
type Row struct {
	Session string
	Time    time.Time
	Reading sensor.Reading
	Fix     gps.Fix
}

type Log struct {
	db      *sql.DB
	insert  *sql.Stmt
	session string
	clock   storage.Clock
}

func Open(path string, clock storage.Clock) (*Log, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlitelog: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlitelog: create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=1000")
	if err != nil {
		return nil, fmt.Errorf("sqlitelog: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, classify("create schema", err)
	}
	insert, err := db.Prepare(insertReading)
	if err != nil {
		_ = db.Close()
		return nil, classify("prepare", err)
	}

	l := &Log{db: db, insert: insert, session: uuid.NewString(), clock: clock}
	logger.Info().Str("path", path).Str("session", l.session).Msg("sqlite log opened")
	return l, nil
}

// Session identifies this run's rows.
func (l *Log) Session() string { return l.session }

func (l *Log) Record(r sensor.Reading, fix gps.Fix) error {
	now := time.Now()
	if l.clock != nil {
		now = l.clock.Now()
	}

	var lat, lon sql.NullFloat64
	if fix.Valid {
		lat = sql.NullFloat64{Float64: fix.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: fix.Longitude, Valid: true}
	}

	_, err := l.insert.Exec(
		l.session, now.UTC().UnixMilli(),
		r.Temperature, r.Humidity, r.Pressure, r.Luminosity,
		boolToInt(r.TemperatureFault), boolToInt(r.HumidityFault),
		boolToInt(r.PressureFault), boolToInt(r.LuminosityFault),
		lat, lon,
	)
	if err != nil {
		return classify("insert", err)
	}
	return nil
}

// Recent returns up to limit rows, newest first.
func (l *Log) Recent(limit int) ([]Row, error) {
	rows, err := l.db.Query(`
SELECT session, ts, temperature, humidity, pressure, luminosity,
       temperature_fault, humidity_fault, pressure_fault, luminosity_fault,
       latitude, longitude
FROM readings ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, classify("query", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			row      Row
			ts       int64
			tf, hf   int
			pf, lf   int
			lat, lon sql.NullFloat64
		)
		if err := rows.Scan(&row.Session, &ts,
			&row.Reading.Temperature, &row.Reading.Humidity, &row.Reading.Pressure, &row.Reading.Luminosity,
			&tf, &hf, &pf, &lf, &lat, &lon); err != nil {
			return nil, classify("scan", err)
		}
		row.Time = time.UnixMilli(ts).UTC()
		row.Reading.TemperatureFault = tf != 0
		row.Reading.HumidityFault = hf != 0
		row.Reading.PressureFault = pf != 0
		row.Reading.LuminosityFault = lf != 0
		if lat.Valid && lon.Valid {
			row.Fix = gps.Fix{Latitude: lat.Float64, Longitude: lon.Float64, Valid: true}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("scan", err)
	}
	return out, nil
}

func (l *Log) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	_ = l.insert.Close()
	if _, err := l.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		logger.Warn().Err(err).Msg("sqlite checkpoint failed")
	}
	err := l.db.Close()
	l.db = nil
	return err
}

func classify(op string, err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrFull {
		return fmt.Errorf("sqlitelog: %s: %w: %v", op, storage.ErrFull, err)
	}
	return fmt.Errorf("sqlitelog: %s: %w", op, err)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
