package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/parksurvey/birdboard/internal/config"
	"github.com/parksurvey/birdboard/internal/db"
	"github.com/parksurvey/birdboard/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// observationColumns is the column order shared by the load query and the
// COPY bulk insert.
var observationColumns = []string{
	"id", "plot_name", "date", "observer", "common_name", "scientific_name",
	"distance", "sex", "temperature", "humidity", "sky", "wind",
	"start_time", "end_time", "pif_watchlist_status",
}

const selectObservations = `SELECT id, plot_name, date, observer, common_name, scientific_name, distance, sex, temperature, humidity, sky, wind, start_time, end_time, pif_watchlist_status FROM bird_observations ORDER BY date, id`

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"select_observations": selectObservations,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *config.PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS bird_observations (
	id                   TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	plot_name            TEXT NOT NULL,
	date                 DATE,
	observer             TEXT NOT NULL,
	common_name          TEXT NOT NULL,
	scientific_name      TEXT NOT NULL DEFAULT '',
	distance             TEXT NOT NULL DEFAULT '',
	sex                  TEXT NOT NULL DEFAULT '',
	temperature          DOUBLE PRECISION,
	humidity             DOUBLE PRECISION,
	sky                  TEXT NOT NULL DEFAULT '',
	wind                 TEXT NOT NULL DEFAULT '',
	start_time           TEXT NOT NULL DEFAULT '',
	end_time             TEXT NOT NULL DEFAULT '',
	pif_watchlist_status BOOLEAN NOT NULL DEFAULT false
);

CREATE INDEX IF NOT EXISTS idx_bird_observations_date ON bird_observations(date);
CREATE INDEX IF NOT EXISTS idx_bird_observations_plot ON bird_observations(plot_name);
CREATE INDEX IF NOT EXISTS idx_bird_observations_species ON bird_observations(common_name);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) LoadObservations(ctx context.Context) ([]model.Observation, error) {
	rows, err := s.pool.Query(ctx, selectObservations)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load observations")
	}
	defer rows.Close()

	var obs []model.Observation
	for rows.Next() {
		var o model.Observation
		var date *time.Time
		err := rows.Scan(
			&o.ID, &o.PlotName, &date, &o.Observer, &o.CommonName, &o.ScientificName,
			&o.Distance, &o.Sex, &o.Temperature, &o.Humidity, &o.Sky, &o.Wind,
			&o.StartTime, &o.EndTime, &o.Watchlist,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan observation")
		}
		if date != nil {
			o.Date = *date
		}
		o.Derive()
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: read observations")
	}
	return obs, nil
}

func (s *PostgresStore) InsertObservations(ctx context.Context, obs []model.Observation) (int64, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(obs))
	for _, o := range obs {
		id := o.ID
		if id == "" {
			id = uuid.New().String()
		}
		var date *time.Time
		if o.HasDate() {
			d := o.Date
			date = &d
		}
		rows = append(rows, []any{
			id, o.PlotName, date, o.Observer, o.CommonName, o.ScientificName,
			o.Distance, o.Sex, o.Temperature, o.Humidity, o.Sky, o.Wind,
			o.StartTime, o.EndTime, o.Watchlist,
		})
	}

	n, err := db.CopyFrom(ctx, s.pool, "bird_observations", observationColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert observations")
	}
	return n, nil
}
