package appointment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const apptColumns = `id, title, lawyer_id, client_id, coalesce(case_id, ''), kind, status,
	starts_at, ends_at, coalesce(location, ''), coalesce(notes, ''), created_by, created_at, updated_at`

func scanAppt(row interface{ Scan(...any) error }) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.Title, &a.LawyerID, &a.ClientID, &a.CaseID, &a.Kind, &a.Status,
		&a.StartsAt, &a.EndsAt, &a.Location, &a.Notes, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *PGStore) Create(ctx context.Context, a *Appointment) error {
	_, err := s.db.ExecContext(ctx,
		`insert into appointments(id, title, lawyer_id, client_id, case_id, kind, status,
		  starts_at, ends_at, location, notes, created_by, created_at, updated_at)
		 values($1,$2,$3,$4,nullif($5,''),$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		a.ID, a.Title, a.LawyerID, a.ClientID, a.CaseID, string(a.Kind), string(a.Status),
		a.StartsAt, a.EndsAt, a.Location, a.Notes, a.CreatedBy, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (s *PGStore) Find(ctx context.Context, id string) (*Appointment, error) {
	return scanAppt(s.db.QueryRowContext(ctx,
		`select `+apptColumns+` from appointments where id=$1`, id))
}

func (s *PGStore) List(ctx context.Context, f Filter) ([]*Appointment, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.LawyerID != "" {
		where = append(where, "lawyer_id="+arg(f.LawyerID))
	}
	if f.ClientID != "" {
		where = append(where, "client_id="+arg(f.ClientID))
	}
	if f.CaseID != "" {
		where = append(where, "case_id="+arg(f.CaseID))
	}
	if f.Status != "" {
		where = append(where, "status="+arg(string(f.Status)))
	}
	if !f.From.IsZero() {
		where = append(where, "ends_at >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "starts_at < "+arg(f.To))
	}
	clause := ""
	if len(where) > 0 {
		clause = " where " + strings.Join(where, " and ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from appointments`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`select %s from appointments%s order by starts_at asc limit %s offset %s`,
		apptColumns, clause, arg(f.Limit), arg(f.Offset))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var appts []*Appointment
	for rows.Next() {
		a, err := scanAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		appts = append(appts, a)
	}
	return appts, total, rows.Err()
}

func (s *PGStore) Update(ctx context.Context, a *Appointment) error {
	res, err := s.db.ExecContext(ctx,
		`update appointments set title=$2, kind=$3, status=$4, starts_at=$5, ends_at=$6,
		  location=$7, notes=$8, updated_at=$9 where id=$1`,
		a.ID, a.Title, string(a.Kind), string(a.Status), a.StartsAt, a.EndsAt,
		a.Location, a.Notes, a.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Overlaps(ctx context.Context, lawyerID string, from, to time.Time, excludeID string) (bool, error) {
	var busy bool
	err := s.db.QueryRowContext(ctx,
		`select exists(
		   select 1 from appointments
		   where lawyer_id=$1 and id <> $4 and status <> 'cancelled'
		     and starts_at < $3 and ends_at > $2)`,
		lawyerID, from, to, excludeID).Scan(&busy)
	return busy, err
}
