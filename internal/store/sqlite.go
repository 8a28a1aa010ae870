package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/parksurvey/birdboard/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS bird_observations (
	id                   TEXT PRIMARY KEY,
	plot_name            TEXT NOT NULL,
	date                 TEXT,
	observer             TEXT NOT NULL,
	common_name          TEXT NOT NULL,
	scientific_name      TEXT NOT NULL DEFAULT '',
	distance             TEXT NOT NULL DEFAULT '',
	sex                  TEXT NOT NULL DEFAULT '',
	temperature          REAL,
	humidity             REAL,
	sky                  TEXT NOT NULL DEFAULT '',
	wind                 TEXT NOT NULL DEFAULT '',
	start_time           TEXT NOT NULL DEFAULT '',
	end_time             TEXT NOT NULL DEFAULT '',
	pif_watchlist_status INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_bird_observations_date ON bird_observations(date);
CREATE INDEX IF NOT EXISTS idx_bird_observations_plot ON bird_observations(plot_name);
CREATE INDEX IF NOT EXISTS idx_bird_observations_species ON bird_observations(common_name);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadObservations(ctx context.Context) ([]model.Observation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, plot_name, date, observer, common_name, scientific_name,
		        distance, sex, temperature, humidity, sky, wind,
		        start_time, end_time, pif_watchlist_status
		 FROM bird_observations ORDER BY date, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load observations")
	}
	defer rows.Close()

	var obs []model.Observation
	for rows.Next() {
		var o model.Observation
		var date sql.NullString
		var watchlist int
		err := rows.Scan(
			&o.ID, &o.PlotName, &date, &o.Observer, &o.CommonName, &o.ScientificName,
			&o.Distance, &o.Sex, &o.Temperature, &o.Humidity, &o.Sky, &o.Wind,
			&o.StartTime, &o.EndTime, &watchlist,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan observation")
		}
		o.Watchlist = watchlist != 0
		// A date that does not parse stays a null marker; the row loads
		// regardless.
		if date.Valid {
			if d, perr := time.Parse("2006-01-02", date.String); perr == nil {
				o.Date = d
			}
		}
		o.Derive()
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: read observations")
	}
	return obs, nil
}

func (s *SQLiteStore) InsertObservations(ctx context.Context, obs []model.Observation) (int64, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO bird_observations (
			id, plot_name, date, observer, common_name, scientific_name,
			distance, sex, temperature, humidity, sky, wind,
			start_time, end_time, pif_watchlist_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	var n int64
	for _, o := range obs {
		id := o.ID
		if id == "" {
			id = uuid.New().String()
		}
		var date any
		if o.HasDate() {
			date = o.Date.Format("2006-01-02")
		}
		watchlist := 0
		if o.Watchlist {
			watchlist = 1
		}
		_, err := stmt.ExecContext(ctx,
			id, o.PlotName, date, o.Observer, o.CommonName, o.ScientificName,
			o.Distance, o.Sex, o.Temperature, o.Humidity, o.Sky, o.Wind,
			o.StartTime, o.EndTime, watchlist,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert observation %s", id)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return n, nil
}
