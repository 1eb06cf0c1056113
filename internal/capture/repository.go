package capture

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/fingerprint-core/internal/infrastructure/database"
)

// Domain errors for the capture store.
var (
	// ErrNoCaptures is returned when the history is empty.
	ErrNoCaptures = errors.New("capture: no captures recorded")

	// ErrDeviceNotFound is returned when no device info exists for a serial.
	ErrDeviceNotFound = errors.New("capture: device not found")
)

// timeFormat is the canonical timestamp encoding in the store. The
// fractional part is fixed width so that lexicographic ordering of the
// stored strings matches chronological ordering; RFC3339Nano strips
// trailing zeros and would sort ".1Z" after ".15Z" within a second.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the persistence contract consumed by the capture service and
// the HTTP layer.
type Store interface {
	// StoreCapture inserts a capture record and refreshes the device info
	// row for its serial in a single transaction. On success the record's
	// ID and CreatedAt are populated.
	StoreCapture(ctx context.Context, rec *Record) error

	// Latest returns the most recent capture, or ErrNoCaptures.
	Latest(ctx context.Context) (*Record, error)

	// History returns up to limit captures, newest first. A limit of
	// zero yields an empty slice.
	History(ctx context.Context, limit int) ([]Record, error)

	// Stats summarises the stored history.
	Stats(ctx context.Context) (Stats, error)

	// DeviceInfo returns the persisted state for a device serial, or
	// ErrDeviceNotFound.
	DeviceInfo(ctx context.Context, serial string) (*DeviceInfo, error)
}

// Repository is the SQLite-backed Store.
type Repository struct {
	db *database.DB
}

// NewRepository creates a Repository over an open database.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// StoreCapture writes the capture row and upserts device info atomically.
// If either write fails the transaction rolls back and no state changes.
func (r *Repository) StoreCapture(ctx context.Context, rec *Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	now := time.Now().UTC()
	rec.CreatedAt = now

	res, err := tx.ExecContext(ctx, `
		INSERT INTO captures (
			enrollment_id, score, image_base64, template_base64,
			device_serial, image_width, image_height, captured_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.EnrollmentID,
		rec.Score,
		rec.ImageBase64,
		rec.TemplateBase64,
		rec.DeviceSerial,
		rec.ImageWidth,
		rec.ImageHeight,
		rec.CapturedAt.UTC().Format(timeFormat),
		now.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting capture: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading capture id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO device_info (
			device_serial, device_type, last_connected,
			image_width, image_height, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(device_serial) DO UPDATE SET
			last_connected = excluded.last_connected,
			image_width = excluded.image_width,
			image_height = excluded.image_height,
			is_active = 1,
			updated_at = excluded.updated_at`,
		rec.DeviceSerial,
		"fingerprint_reader",
		rec.CapturedAt.UTC().Format(timeFormat),
		rec.ImageWidth,
		rec.ImageHeight,
		now.Format(timeFormat),
		now.Format(timeFormat),
	); err != nil {
		return fmt.Errorf("upserting device info: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing capture: %w", err)
	}

	rec.ID = id
	return nil
}

// captureColumns is the select list shared by the read queries.
const captureColumns = `
	id, enrollment_id, score, image_base64, template_base64,
	device_serial, image_width, image_height, captured_at, created_at`

// Latest returns the most recent capture by capture timestamp.
func (r *Repository) Latest(ctx context.Context) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+captureColumns+` FROM captures ORDER BY captured_at DESC, id DESC LIMIT 1`,
	)

	rec, err := scanCapture(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoCaptures
		}
		return nil, fmt.Errorf("querying latest capture: %w", err)
	}
	return rec, nil
}

// History returns up to limit captures, newest first.
func (r *Repository) History(ctx context.Context, limit int) ([]Record, error) {
	records := []Record{}
	if limit <= 0 {
		return records, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+captureColumns+` FROM captures ORDER BY captured_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying capture history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning capture row: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating capture history: %w", err)
	}
	return records, nil
}

// Stats summarises the capture history in one query.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	var last sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT device_serial), MAX(captured_at)
		FROM captures`,
	).Scan(&stats.TotalCaptures, &stats.DeviceCount, &last)
	if err != nil {
		return Stats{}, fmt.Errorf("querying capture stats: %w", err)
	}

	if last.Valid {
		t, err := time.Parse(time.RFC3339Nano, last.String)
		if err != nil {
			return Stats{}, fmt.Errorf("parsing last capture timestamp: %w", err)
		}
		stats.LastCapture = &t
	}
	return stats, nil
}

// DeviceInfo returns the stored state for a device serial.
func (r *Repository) DeviceInfo(ctx context.Context, serial string) (*DeviceInfo, error) {
	var info DeviceInfo
	var deviceType sql.NullString
	var lastConnected, createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx, `
		SELECT id, device_serial, device_type, last_connected,
		       image_width, image_height, is_active, created_at, updated_at
		FROM device_info WHERE device_serial = ?`,
		serial,
	).Scan(
		&info.ID,
		&info.DeviceSerial,
		&deviceType,
		&lastConnected,
		&info.ImageWidth,
		&info.ImageHeight,
		&info.IsActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device info: %w", err)
	}

	info.DeviceType = deviceType.String
	if info.LastConnected, err = time.Parse(time.RFC3339Nano, lastConnected); err != nil {
		return nil, fmt.Errorf("parsing last_connected: %w", err)
	}
	if info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if info.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &info, nil
}

// scanner abstracts sql.Row and sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanCapture(s scanner) (*Record, error) {
	var rec Record
	var capturedAt, createdAt string

	err := s.Scan(
		&rec.ID,
		&rec.EnrollmentID,
		&rec.Score,
		&rec.ImageBase64,
		&rec.TemplateBase64,
		&rec.DeviceSerial,
		&rec.ImageWidth,
		&rec.ImageHeight,
		&capturedAt,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if rec.CapturedAt, err = time.Parse(time.RFC3339Nano, capturedAt); err != nil {
		return nil, fmt.Errorf("parsing captured_at: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &rec, nil
}
