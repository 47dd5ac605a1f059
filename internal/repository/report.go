package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound reports that no inspection report exists for the given id.
	ErrNotFound = errors.New("report not found")
	// ErrInvalidColumn reports a caller-supplied column name that failed
	// validation and must not reach a SQL statement.
	ErrInvalidColumn = errors.New("invalid column name")
)

var columnNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidColumnName reports whether name is safe to interpolate as a SQL
// identifier. Caller-supplied column names never reach a statement otherwise.
func ValidColumnName(name string) bool {
	return columnNameRe.MatchString(name)
}

// Report is an inspection report row plus its loosely typed projection. Raw
// feeds the field normalizer, which owns all coercion; the repository only
// copies column values across without interpreting them.
type Report struct {
	ID  string
	Raw map[string]any
}

// ReportRepository wraps all SQL used by the API, worker, and CLI.
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository constructs a repository.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// Get returns a report by id.
func (r *ReportRepository) Get(ctx context.Context, id string) (*Report, error) {
	var (
		assignmentID   sql.NullString
		driverID       sql.NullString
		driverName     sql.NullString
		vehicleReg     sql.NullString
		startOdometer  sql.NullFloat64
		fuelLevel      sql.NullFloat64
		notes          sql.NullString
		checklistState sql.NullString
		completedAt    sql.NullTime
		artifactURL    sql.NullString
		artifactID     sql.NullString
	)
	row := r.pool.QueryRow(ctx, `
		SELECT assignment_id, driver_id, driver_name, vehicle_registration,
		       start_odometer, fuel_level, notes, checklist_state::text,
		       completed_at, artifact_url, artifact_id
		FROM inspection_reports WHERE id=$1
	`, id)
	err := row.Scan(&assignmentID, &driverID, &driverName, &vehicleReg,
		&startOdometer, &fuelLevel, &notes, &checklistState,
		&completedAt, &artifactURL, &artifactID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select report: %w", err)
	}

	raw := map[string]any{"id": id}
	putString(raw, "assignment_id", assignmentID)
	putString(raw, "driver_id", driverID)
	putString(raw, "driver_name", driverName)
	putString(raw, "vehicle_registration", vehicleReg)
	putString(raw, "notes", notes)
	putString(raw, "artifact_url", artifactURL)
	putString(raw, "artifact_id", artifactID)
	if startOdometer.Valid {
		raw["start_odometer"] = startOdometer.Float64
	}
	if fuelLevel.Valid {
		raw["fuel_level"] = fuelLevel.Float64
	}
	// checklist_state stays a JSON string here; the normalizer's sanitize
	// pass parses it together with any nested JSON-encoded strings inside.
	if checklistState.Valid {
		raw["checklist_state"] = checklistState.String
	}
	if completedAt.Valid {
		raw["completed_at"] = completedAt.Time.UTC().Format(time.RFC3339)
	}
	return &Report{ID: id, Raw: raw}, nil
}

// AttachArtifact writes the published artifact reference back onto the report
// row. These two columns are the only ones the export pipeline ever updates.
func (r *ReportRepository) AttachArtifact(ctx context.Context, id, urlColumn, fileIDColumn, url, fileID string) error {
	if !ValidColumnName(urlColumn) {
		return fmt.Errorf("%w: %q", ErrInvalidColumn, urlColumn)
	}
	if !ValidColumnName(fileIDColumn) {
		return fmt.Errorf("%w: %q", ErrInvalidColumn, fileIDColumn)
	}
	stmt := fmt.Sprintf(`UPDATE inspection_reports SET %s=$1, %s=$2, updated_at=$3 WHERE id=$4`, urlColumn, fileIDColumn)
	tag, err := r.pool.Exec(ctx, stmt, url, fileID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("attach artifact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func putString(m map[string]any, key string, v sql.NullString) {
	if v.Valid {
		m[key] = v.String
	}
}
