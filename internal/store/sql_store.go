package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/peakbase/internal/contract"
	"github.com/huangsam/peakbase/schema"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Column lists shared by the queries below.
const (
	experimentColumns = `id, name, experiment_date, description, filename, device_filename, data_source,
		instrument_model, init_e, sample_interval, run_time, quiet_time, sensitivity, samples, project_id, last_updated`
	channelColumns = `id, experiment_id, channel_name, time_values, raw_values, baseline_chosen_points,
		baseline_spline, baseline_values, integral_chosen_pairs, integral_results, last_updated`
)

// SQLStore is a ChannelStore backed by SQLite, MySQL or PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	now     func() time.Time
}

var _ contract.ChannelStore = &SQLStore{} // Compile-time check

// openDB opens and pings a database handle for backend.
func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, error) {
	var db *sql.DB
	var err error

	switch backend {
	case schema.SQLiteBackend:
		dbPath := connStr
		if dbPath == "" {
			dbPath = contract.GetDBFilePath()
		}
		db, err = sql.Open("sqlite", dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database at %q: %w. Check that the directory is writable", dbPath, err)
		}
		// A single connection serializes transactions and keeps :memory: databases alive
		db.SetMaxOpenConns(1)

	case schema.MySQLBackend:
		// connStr should be:
		// user:password@tcp(host:port)/dbname
		db, err = sql.Open("mysql", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open MySQL database: %w. Check connection string format: user:password@tcp(host:port)/dbname", err)
		}

	case schema.PostgreSQLBackend:
		// connStr should be:
		// host=localhost port=5432 user=postgres password=secret dbname=peakbase
		db, err = sql.Open("pgx", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w. Check connection string format: host=localhost port=5432 user=postgres dbname=mydb", err)
		}

	default:
		return nil, fmt.Errorf("unsupported SQL backend: %s", backend)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database. Check that the server is running and connection parameters are valid: %w", backend, err)
	}
	return db, nil
}

// NewSQLStore opens the database for backend and migrates it to the latest schema.
func NewSQLStore(backend schema.DatabaseBackend, connStr string) (*SQLStore, error) {
	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}
	if backend == schema.SQLiteBackend {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable SQLite foreign keys: %w", err)
		}
	}
	if err := ensureSchema(db, backend, connStr); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate %s store: %w", backend, err)
	}
	return &SQLStore{db: db, backend: backend, now: time.Now}, nil
}

// rebind rewrites ? placeholders into the backend's native form.
func (s *SQLStore) rebind(query string) string {
	if s.backend != schema.PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// rowLockSuffix returns the clause that locks a selected row until commit.
// SQLite needs none because the store holds a single connection.
func (s *SQLStore) rowLockSuffix() string {
	if s.backend == schema.SQLiteBackend {
		return ""
	}
	return " FOR UPDATE"
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// GetChannel returns the channel with the given id.
func (s *SQLStore) GetChannel(ctx context.Context, id string) (schema.Channel, error) {
	return s.selectChannel(ctx, s.db, id, false)
}

func (s *SQLStore) selectChannel(ctx context.Context, q queryer, id string, lock bool) (schema.Channel, error) {
	query := fmt.Sprintf("SELECT %s FROM channels WHERE id = ?", channelColumns)
	if lock {
		query += s.rowLockSuffix()
	}
	ch, err := scanChannel(q.QueryRowContext(ctx, s.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Channel{}, &schema.NotFoundError{Entity: "channel", ID: id}
	}
	if err != nil {
		return schema.Channel{}, fmt.Errorf("failed to read channel %s: %w", id, err)
	}
	return ch, nil
}

// CommitChannel runs read-compute-write for one channel inside a transaction.
func (s *SQLStore) CommitChannel(ctx context.Context, id string, compute contract.CommitFunc) (schema.Channel, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return schema.Channel{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	current, err := s.selectChannel(ctx, tx, id, true)
	if err != nil {
		return schema.Channel{}, err
	}
	commit, err := compute(current)
	if err != nil {
		return schema.Channel{}, err
	}
	if commit.Empty() {
		return current, tx.Commit()
	}

	updated := commit.Apply(current)
	updated.LastUpdated = s.now().UTC()
	if err := s.writeAnnotations(ctx, tx, updated); err != nil {
		return schema.Channel{}, err
	}
	if err := tx.Commit(); err != nil {
		return schema.Channel{}, fmt.Errorf("failed to commit channel %s: %w", id, err)
	}
	return updated, nil
}

// writeAnnotations persists the annotation and derived columns of ch and
// bumps the owning experiment's update time.
func (s *SQLStore) writeAnnotations(ctx context.Context, tx *sql.Tx, ch schema.Channel) error {
	cols, err := encodeAnnotations(ch)
	if err != nil {
		return err
	}
	ts := ch.LastUpdated.UnixNano()
	query := `UPDATE channels SET baseline_chosen_points = ?, baseline_spline = ?, baseline_values = ?,
		integral_chosen_pairs = ?, integral_results = ?, filled = ?, last_updated = ? WHERE id = ?`
	args := append(cols, filledFlag(ch), ts, ch.ID)
	if _, err := tx.ExecContext(ctx, s.rebind(query), args...); err != nil {
		return fmt.Errorf("failed to update channel %s: %w", ch.ID, err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind("UPDATE experiments SET last_updated = ? WHERE id = ?"), ts, ch.ExperimentID); err != nil {
		return fmt.Errorf("failed to touch experiment %s: %w", ch.ExperimentID, err)
	}
	return nil
}

// CreateExperiment inserts the experiment row and all channel rows in one transaction.
func (s *SQLStore) CreateExperiment(ctx context.Context, exp schema.Experiment) error {
	if exp.ID == "" {
		return errors.New("experiment id cannot be empty")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := exp.LastUpdated
	if ts.IsZero() {
		ts = s.now().UTC()
	}
	var date sql.NullInt64
	if exp.Date != nil {
		date = sql.NullInt64{Int64: exp.Date.UnixNano(), Valid: true}
	}
	expQuery := fmt.Sprintf("INSERT INTO experiments (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", experimentColumns)
	_, err = tx.ExecContext(ctx, s.rebind(expQuery),
		exp.ID, exp.Name, date, exp.Description, exp.Filename, exp.DeviceFilename, exp.DataSource,
		exp.InstrumentModel, nullFloat(exp.InitE), nullFloat(exp.SampleInterval), nullFloat(exp.RunTime),
		nullFloat(exp.QuietTime), nullFloat(exp.Sensitivity), nullInt(exp.Samples), exp.ProjectID, ts.UnixNano())
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("experiment %s: %w", exp.ID, schema.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert experiment %s: %w", exp.ID, err)
	}

	chQuery := `INSERT INTO channels (id, experiment_id, channel_name, channel_index, time_values, raw_values,
		baseline_chosen_points, baseline_spline, baseline_values, integral_chosen_pairs, integral_results, filled, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	chQuery = s.rebind(chQuery)
	for i, ch := range exp.Channels {
		timeJSON, err := encodeJSON(nonNil(ch.TimeValues))
		if err != nil {
			return err
		}
		rawJSON, err := encodeJSON(nonNil(ch.RawValues))
		if err != nil {
			return err
		}
		cols, err := encodeAnnotations(ch)
		if err != nil {
			return err
		}
		args := []any{ch.ID, exp.ID, ch.ChannelName, i, timeJSON.String, rawJSON.String}
		args = append(args, cols...)
		args = append(args, filledFlag(ch), ts.UnixNano())
		if _, err := tx.ExecContext(ctx, chQuery, args...); err != nil {
			if isDuplicateKey(err) {
				return fmt.Errorf("channel %s: %w", ch.ID, schema.ErrAlreadyExists)
			}
			return fmt.Errorf("failed to insert channel %s: %w", ch.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit experiment %s: %w", exp.ID, err)
	}
	return nil
}

// GetExperiment returns the experiment and its channels in import order.
func (s *SQLStore) GetExperiment(ctx context.Context, id string) (schema.Experiment, error) {
	query := fmt.Sprintf("SELECT %s FROM experiments WHERE id = ?", experimentColumns)
	exp, err := scanExperiment(s.db.QueryRowContext(ctx, s.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Experiment{}, &schema.NotFoundError{Entity: "experiment", ID: id}
	}
	if err != nil {
		return schema.Experiment{}, fmt.Errorf("failed to read experiment %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(fmt.Sprintf("SELECT %s FROM channels WHERE experiment_id = ? ORDER BY channel_index", channelColumns)), id)
	if err != nil {
		return schema.Experiment{}, fmt.Errorf("failed to query channels of %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	exp.Channels = []schema.Channel{}
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return schema.Experiment{}, fmt.Errorf("failed to scan channel: %w", err)
		}
		exp.Channels = append(exp.Channels, ch)
	}
	if err := rows.Err(); err != nil {
		return schema.Experiment{}, fmt.Errorf("error iterating channels: %w", err)
	}
	return exp, nil
}

// ListExperiments returns summary rows, most recently updated first.
func (s *SQLStore) ListExperiments(ctx context.Context) ([]schema.ExperimentSummary, error) {
	query := `SELECT e.id, e.name, e.experiment_date, e.instrument_model, e.last_updated,
		COUNT(c.id), COALESCE(SUM(c.filled), 0)
		FROM experiments e LEFT JOIN channels c ON c.experiment_id = e.id
		GROUP BY e.id, e.name, e.experiment_date, e.instrument_model, e.last_updated
		ORDER BY e.last_updated DESC, e.id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := []schema.ExperimentSummary{}
	for rows.Next() {
		var row schema.ExperimentSummary
		var date sql.NullInt64
		var updated int64
		if err := rows.Scan(&row.ID, &row.Name, &date, &row.InstrumentModel, &updated, &row.ChannelQty, &row.ChannelQtyFilled); err != nil {
			return nil, fmt.Errorf("failed to scan experiment summary: %w", err)
		}
		row.Date = timePtr(date)
		row.LastUpdated = time.Unix(0, updated).UTC()
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating experiments: %w", err)
	}
	return results, nil
}

// DeleteExperiment removes an experiment and its channels.
func (s *SQLStore) DeleteExperiment(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Channels go first so the delete does not depend on cascade support.
	if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM channels WHERE experiment_id = ?"), id); err != nil {
		return fmt.Errorf("failed to delete channels of %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, s.rebind("DELETE FROM experiments WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete experiment %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &schema.NotFoundError{Entity: "experiment", ID: id}
	}
	return tx.Commit()
}

// Clear removes every experiment and channel.
func (s *SQLStore) Clear(ctx context.Context) error {
	for _, table := range []string{"channels", "experiments"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}
	return nil
}

// GetStatus returns status information about the store.
func (s *SQLStore) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:   string(s.backend),
		Connected: s.db != nil,
	}
	if s.db == nil {
		return status, nil
	}

	var lastUpdated sql.NullInt64
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*), MAX(last_updated) FROM experiments")
	if err := row.Scan(&status.Experiments, &lastUpdated); err != nil {
		return status, fmt.Errorf("failed to count experiments: %w", err)
	}
	if lastUpdated.Valid {
		status.LastUpdated = time.Unix(0, lastUpdated.Int64).UTC()
	}

	row = s.db.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(filled), 0) FROM channels")
	if err := row.Scan(&status.Channels, &status.FilledChannels); err != nil {
		return status, fmt.Errorf("failed to count channels: %w", err)
	}

	var version int64
	var dirty bool
	row = s.db.QueryRowContext(ctx, "SELECT version, dirty FROM "+migrationsTable+" LIMIT 1")
	switch err := row.Scan(&version, &dirty); {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return status, fmt.Errorf("failed to read schema version: %w", err)
	default:
		status.SchemaVersion = uint(version)
		status.Dirty = dirty
	}
	return status, nil
}

// Close closes the underlying DB connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// scanChannel decodes one channels row.
func scanChannel(row rowScanner) (schema.Channel, error) {
	var ch schema.Channel
	var timeJSON, rawJSON string
	var chosen, spline, values, pairs, results sql.NullString
	var updated int64
	if err := row.Scan(&ch.ID, &ch.ExperimentID, &ch.ChannelName, &timeJSON, &rawJSON,
		&chosen, &spline, &values, &pairs, &results, &updated); err != nil {
		return ch, err
	}

	fields := []struct {
		src sql.NullString
		dst any
	}{
		{sql.NullString{String: timeJSON, Valid: true}, &ch.TimeValues},
		{sql.NullString{String: rawJSON, Valid: true}, &ch.RawValues},
		{chosen, &ch.BaselineChosenPoints},
		{spline, &ch.BaselineSpline},
		{values, &ch.BaselineValues},
		{pairs, &ch.IntegralChosenPairs},
		{results, &ch.IntegralResults},
	}
	for _, f := range fields {
		if err := decodeJSON(f.src, f.dst); err != nil {
			return ch, fmt.Errorf("channel %s: %w", ch.ID, err)
		}
	}
	ch.LastUpdated = time.Unix(0, updated).UTC()
	return ch, nil
}

// scanExperiment decodes one experiments row.
func scanExperiment(row rowScanner) (schema.Experiment, error) {
	var exp schema.Experiment
	var date, samples sql.NullInt64
	var initE, interval, runTime, quietTime, sensitivity sql.NullFloat64
	var updated int64
	if err := row.Scan(&exp.ID, &exp.Name, &date, &exp.Description, &exp.Filename, &exp.DeviceFilename,
		&exp.DataSource, &exp.InstrumentModel, &initE, &interval, &runTime, &quietTime, &sensitivity,
		&samples, &exp.ProjectID, &updated); err != nil {
		return exp, err
	}
	exp.Date = timePtr(date)
	exp.InitE = floatPtr(initE)
	exp.SampleInterval = floatPtr(interval)
	exp.RunTime = floatPtr(runTime)
	exp.QuietTime = floatPtr(quietTime)
	exp.Sensitivity = floatPtr(sensitivity)
	if samples.Valid {
		n := int(samples.Int64)
		exp.Samples = &n
	}
	exp.LastUpdated = time.Unix(0, updated).UTC()
	return exp, nil
}

// encodeAnnotations returns the five annotation columns of ch in table order.
func encodeAnnotations(ch schema.Channel) ([]any, error) {
	values := []any{ch.BaselineChosenPoints, ch.BaselineSpline, ch.BaselineValues, ch.IntegralChosenPairs, ch.IntegralResults}
	out := make([]any, len(values))
	for i, v := range values {
		col, err := encodeJSON(v)
		if err != nil {
			return nil, err
		}
		out[i] = col
	}
	return out, nil
}

// encodeJSON maps a nil slice to NULL and anything else to its JSON text,
// so an empty slice is stored as "[]" and stays distinct from absent.
func encodeJSON(v any) (sql.NullString, error) {
	switch t := v.(type) {
	case []float64:
		if t == nil {
			return sql.NullString{}, nil
		}
	case []schema.IntegralPair:
		if t == nil {
			return sql.NullString{}, nil
		}
	case []schema.IntegralResult:
		if t == nil {
			return sql.NullString{}, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode column: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// decodeJSON is the inverse of encodeJSON; NULL leaves dst nil.
func decodeJSON(src sql.NullString, dst any) error {
	if !src.Valid {
		return nil
	}
	if err := json.Unmarshal([]byte(src.String), dst); err != nil {
		return fmt.Errorf("failed to decode column: %w", err)
	}
	return nil
}

func nonNil(s []float64) []float64 {
	if s == nil {
		return []float64{}
	}
	return s
}

func filledFlag(ch schema.Channel) int {
	if ch.HasBaseline() {
		return 1
	}
	return 0
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}

// isDuplicateKey reports whether err is a primary key violation on any backend.
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
