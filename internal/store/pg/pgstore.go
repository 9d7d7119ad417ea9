// Package pg implements the pin stores on Postgres via database/sql and the
// pgx stdlib driver.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"brooks.social/pins/internal/geo"
	"brooks.social/pins/internal/pin"
)

// Store holds the shared connection pool.
type Store struct {
	db *sql.DB
}

var (
	_ pin.Store       = (*Store)(nil)
	_ pin.ACLStore    = (*Store)(nil)
	_ pin.UnlockStore = (*Store)(nil)
)

// Open connects to Postgres and tunes the pool.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing pool (tests).
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

const pinColumns = `id, owner_id, text, link_url, audience_type, available_from, expires_at,
	reveal_type, reveal_radius_m, map_precision, notify_radius_m, notify_cooldown_seconds,
	notify_repeatable, future_self, lat, lng, altitude_m, mystery_polygon, bucket, created_at`

func (s *Store) Save(ctx context.Context, p pin.Pin) error {
	var zone any
	if !p.MysteryZone.IsZero() {
		data, err := json.Marshal(p.MysteryZone)
		if err != nil {
			return fmt.Errorf("encode mystery polygon: %w", err)
		}
		zone = data
	}
	_, err := s.db.ExecContext(ctx, `
		insert into pins(`+pinColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`,
		p.ID, p.OwnerID, p.Text, nullString(p.LinkURL), string(p.Audience),
		p.AvailableFrom, p.ExpiresAt, string(p.RevealType), nullInt(p.RevealRadiusM),
		string(p.MapPrecision), nullInt(p.NotifyRadiusM), p.NotifyCooldownSeconds,
		p.NotifyRepeatable, p.FutureSelf, p.Location.Lat, p.Location.Lng,
		nullFloat(p.Location.AltitudeM), zone, p.Bucket, p.CreatedAt,
	)
	return err
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (pin.Pin, error) {
	row := s.db.QueryRowContext(ctx, `select `+pinColumns+` from pins where id=$1`, id)
	p, err := scanPin(row)
	if errors.Is(err, sql.ErrNoRows) {
		return pin.Pin{}, pin.ErrNotFound
	}
	return p, err
}

func (s *Store) FindInBoundingBox(ctx context.Context, minLng, minLat, maxLng, maxLat float64, now time.Time) ([]pin.Pin, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+pinColumns+` from pins
		where lng between $1 and $2
		  and lat between $3 and $4
		  and available_from <= $5 and expires_at > $5
		order by created_at, id
	`, minLng, maxLng, minLat, maxLat, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPins(rows)
}

func (s *Store) FindByBuckets(ctx context.Context, buckets []string, now time.Time) ([]pin.Pin, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+pinColumns+` from pins
		where bucket = any($1)
		  and available_from <= $2 and expires_at > $2
		order by created_at, id
	`, buckets, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPins(rows)
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `delete from pins where id=$1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return pin.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteExpiredBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		delete from pins where id in (
			select id from pins where expires_at < $1 limit $2
		)
	`, cutoff, limit)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *Store) SaveEntries(ctx context.Context, entries []pin.ACLEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			insert into pin_acl(pin_id, target_type, target_id)
			values ($1,$2,$3)
			on conflict do nothing
		`, e.PinID, string(e.TargetType), e.TargetID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) FindByPinID(ctx context.Context, pinID uuid.UUID) ([]pin.ACLEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		select pin_id, target_type, target_id from pin_acl where pin_id=$1
	`, pinID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pin.ACLEntry
	for rows.Next() {
		var e pin.ACLEntry
		var targetType string
		if err := rows.Scan(&e.PinID, &targetType, &e.TargetID); err != nil {
			return nil, err
		}
		e.TargetType = pin.TargetType(targetType)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) RecordUnlock(ctx context.Context, pinID, userID uuid.UUID, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		insert into pin_unlocks(pin_id, user_id, unlocked_at)
		values ($1,$2,$3)
		on conflict (pin_id, user_id) do update set unlocked_at = excluded.unlocked_at
	`, pinID, userID, at)
	return err
}

// Ping checks connectivity for readiness probes.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPin(row rowScanner) (pin.Pin, error) {
	var (
		p            pin.Pin
		linkURL      sql.NullString
		audience     string
		revealType   string
		precision    string
		revealRadius sql.NullInt64
		notifyRadius sql.NullInt64
		altitude     sql.NullFloat64
		zone         []byte
	)
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Text, &linkURL, &audience, &p.AvailableFrom, &p.ExpiresAt,
		&revealType, &revealRadius, &precision, &notifyRadius, &p.NotifyCooldownSeconds,
		&p.NotifyRepeatable, &p.FutureSelf, &p.Location.Lat, &p.Location.Lng,
		&altitude, &zone, &p.Bucket, &p.CreatedAt,
	)
	if err != nil {
		return pin.Pin{}, err
	}
	p.LinkURL = linkURL.String
	p.Audience = pin.AudienceType(audience)
	p.RevealType = pin.RevealType(revealType)
	p.MapPrecision = pin.MapPrecision(precision)
	if revealRadius.Valid {
		v := int(revealRadius.Int64)
		p.RevealRadiusM = &v
	}
	if notifyRadius.Valid {
		v := int(notifyRadius.Int64)
		p.NotifyRadiusM = &v
	}
	if altitude.Valid {
		v := altitude.Float64
		p.Location.AltitudeM = &v
	}
	if len(zone) > 0 {
		var poly geo.Polygon
		if err := json.Unmarshal(zone, &poly); err != nil {
			return pin.Pin{}, fmt.Errorf("decode mystery polygon: %w", err)
		}
		p.MysteryZone = poly
	}
	return p, nil
}

func scanPins(rows *sql.Rows) ([]pin.Pin, error) {
	var out []pin.Pin
	for rows.Next() {
		p, err := scanPin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
