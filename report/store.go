package report

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/swdee/go-lanewatch"
	"github.com/swdee/go-lanewatch/geometry"
	"github.com/swdee/go-lanewatch/tracker"
	"github.com/swdee/go-lanewatch/violation"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// TrackStat is the stored lifetime summary of one track
type TrackStat struct {
	StreamID   string `json:"stream_id"`
	TrackID    int    `json:"track_id"`
	Class      string `json:"class"`
	FirstFrame int    `json:"first_frame"`
	LastFrame  int    `json:"last_frame"`
	Hits       int    `json:"hits"`
	Violations int    `json:"violations"`
}

// Store persists violation events and track statistics to a sqlite
// database.  Each Store records under a run ID so several runs may share a
// database.  It implements lanewatch.EventSink
type Store struct {
	db    *sql.DB
	runID string
	log   zerolog.Logger

	mu  sync.Mutex
	err error
}

// OpenStore opens or creates the database at path, migrates it to the latest
// schema and starts a new run for the given source
func OpenStore(path, source string, log zerolog.Logger) (*Store, error) {

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	s := &Store{
		db:    db,
		runID: uuid.NewString(),
		log:   log.With().Str("component", "store").Logger(),
	}

	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}

	_, err = db.Exec(`INSERT INTO runs (run_id, source) VALUES (?, ?)`, s.runID, source)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error recording run: %w", err)
	}

	s.log.Info().Str("run", s.runID).Str("path", path).Msg("Report store opened")

	return s, nil
}

// newMigrate creates a migrate instance reading the embedded migrations
func (s *Store) newMigrate() (*migrate.Migrate, error) {

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	m.Log = &migrateLogger{log: s.log}

	return m, nil
}

// MigrateUp runs all pending migrations, doing nothing when the schema is
// already current.  The migrate instance is not closed as that would close
// the database
func (s *Store) MigrateUp() error {

	m, err := s.newMigrate()
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	return nil
}

// MigrateDown rolls back the most recent migration
func (s *Store) MigrateDown() error {

	m, err := s.newMigrate()
	if err != nil {
		return err
	}

	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}

	return nil
}

// MigrateVersion returns the current schema version and dirty state
func (s *Store) MigrateVersion() (uint, bool, error) {

	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}

	version, dirty, err := m.Version()

	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}

	return version, dirty, err
}

// migrateLogger implements migrate.Logger
type migrateLogger struct {
	log zerolog.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.log.Debug().Msgf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// RunID returns the identifier of this run
func (s *Store) RunID() string {
	return s.runID
}

// OnFrameResult implements lanewatch.EventSink, writing the frame's events
// and track statistics in one transaction.  Write failures are logged and
// kept for Err
func (s *Store) OnFrameResult(res *lanewatch.FrameResult) {

	if res.Skipped {
		return
	}

	if err := s.record(context.Background(), res); err != nil {
		s.log.Error().Err(err).Int("frame", res.Frame).Str("stream", res.StreamID).
			Msg("Failed to store frame result")

		s.mu.Lock()
		if s.err == nil {
			s.err = err
		}
		s.mu.Unlock()
	}
}

// Err returns the first write error seen by OnFrameResult
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Store) record(ctx context.Context, res *lanewatch.FrameResult) error {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	defer tx.Rollback()

	for _, ev := range res.Events {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO violations (run_id, stream_id, frame, track_id, class,
				region_id, score, confidence, x1, y1, x2, y2)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.runID, res.StreamID, ev.Frame, ev.TrackID, ev.Class.String(),
			ev.RegionID, ev.Score, ev.Confidence,
			ev.Box.X1, ev.Box.Y1, ev.Box.X2, ev.Box.Y2)

		if err != nil {
			return fmt.Errorf("error inserting violation: %w", err)
		}
	}

	// coasting tracks keep the last frame they were observed in
	for _, t := range res.Tracks {

		_, err := tx.ExecContext(ctx, `
			INSERT INTO track_stats (run_id, stream_id, track_id, class,
				first_frame, last_frame, hits, violations)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (run_id, stream_id, track_id) DO UPDATE SET
				class = excluded.class,
				last_frame = CASE WHEN ? THEN excluded.last_frame ELSE track_stats.last_frame END,
				hits = excluded.hits,
				violations = excluded.violations`,
			s.runID, res.StreamID, t.ID, t.Class.String(),
			res.Frame, res.Frame, t.Hits, t.ConfirmedCount,
			t.TimeSinceUpdate == 0)

		if err != nil {
			return fmt.Errorf("error updating track stats: %w", err)
		}
	}

	return tx.Commit()
}

// Violations returns the events stored for this run in frame order.  An empty
// streamID returns events from every stream
func (s *Store) Violations(ctx context.Context, streamID string) ([]violation.Event, error) {

	rows, err := s.db.QueryContext(ctx, `
		SELECT frame, track_id, class, region_id, score, confidence, x1, y1, x2, y2
		FROM violations
		WHERE run_id = ? AND (? = '' OR stream_id = ?)
		ORDER BY stream_id, frame, violation_id`,
		s.runID, streamID, streamID)

	if err != nil {
		return nil, fmt.Errorf("error querying violations: %w", err)
	}

	defer rows.Close()

	var out []violation.Event

	for rows.Next() {
		var ev violation.Event
		var class string
		var box geometry.Box

		if err := rows.Scan(&ev.Frame, &ev.TrackID, &class, &ev.RegionID, &ev.Score,
			&ev.Confidence, &box.X1, &box.Y1, &box.X2, &box.Y2); err != nil {
			return nil, fmt.Errorf("error scanning violation: %w", err)
		}

		ev.Class = tracker.ParseVehicleClass(class)
		ev.Box = box
		out = append(out, ev)
	}

	return out, rows.Err()
}

// TrackStats returns the stored track summaries for this run ordered by
// stream and track
func (s *Store) TrackStats(ctx context.Context) ([]TrackStat, error) {

	rows, err := s.db.QueryContext(ctx, `
		SELECT stream_id, track_id, class, first_frame, last_frame, hits, violations
		FROM track_stats
		WHERE run_id = ?
		ORDER BY stream_id, track_id`, s.runID)

	if err != nil {
		return nil, fmt.Errorf("error querying track stats: %w", err)
	}

	defer rows.Close()

	var out []TrackStat

	for rows.Next() {
		var ts TrackStat

		if err := rows.Scan(&ts.StreamID, &ts.TrackID, &ts.Class, &ts.FirstFrame,
			&ts.LastFrame, &ts.Hits, &ts.Violations); err != nil {
			return nil, fmt.Errorf("error scanning track stat: %w", err)
		}

		out = append(out, ts)
	}

	return out, rows.Err()
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

var _ lanewatch.EventSink = (*Store)(nil)
