package casefile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL. Monthly reference counters
// live in the case_counters table and advance via a conflict upsert, so
// concurrent creates always draw distinct sequence numbers.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const caseColumns = `id, title, reference, client_id, lawyer_ids, coalesce(description, ''),
	status, priority, category, deadlines, notes, start_date, closed_date, created_by, created_at, updated_at`

func scanCase(row interface{ Scan(...any) error }) (*Case, error) {
	var (
		c         Case
		lawyers   []byte
		deadlines []byte
		notes     []byte
		closed    sql.NullTime
	)
	err := row.Scan(&c.ID, &c.Title, &c.Reference, &c.ClientID, &lawyers, &c.Description,
		&c.Status, &c.Priority, &c.Category, &deadlines, &notes,
		&c.StartDate, &closed, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	_ = json.Unmarshal(lawyers, &c.LawyerIDs)
	_ = json.Unmarshal(deadlines, &c.Deadlines)
	_ = json.Unmarshal(notes, &c.Notes)
	if closed.Valid {
		t := closed.Time
		c.ClosedDate = &t
	}
	return &c, nil
}

func (s *PGStore) Create(ctx context.Context, c *Case) error {
	lawyers, _ := json.Marshal(c.LawyerIDs)
	deadlines, _ := json.Marshal(c.Deadlines)
	notes, _ := json.Marshal(c.Notes)
	_, err := s.db.ExecContext(ctx,
		`insert into cases(id, title, reference, client_id, lawyer_ids, description, status,
		  priority, category, deadlines, notes, start_date, closed_date, created_by, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		c.ID, c.Title, c.Reference, c.ClientID, lawyers, c.Description, string(c.Status),
		string(c.Priority), c.Category, deadlines, notes, c.StartDate, c.ClosedDate,
		c.CreatedBy, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (s *PGStore) Find(ctx context.Context, id string) (*Case, error) {
	return scanCase(s.db.QueryRowContext(ctx,
		`select `+caseColumns+` from cases where id=$1`, id))
}

func (s *PGStore) List(ctx context.Context, f Filter) ([]*Case, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.ClientID != "" {
		where = append(where, "client_id="+arg(f.ClientID))
	}
	if f.LawyerID != "" {
		p := arg(f.LawyerID)
		where = append(where, "(created_by="+p+" or lawyer_ids ? "+p+")")
	}
	if f.Status != "" {
		where = append(where, "status="+arg(string(f.Status)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " where " + strings.Join(where, " and ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from cases`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`select %s from cases%s order by created_at desc limit %s offset %s`,
		caseColumns, clause, arg(f.Limit), arg(f.Offset))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var cases []*Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		cases = append(cases, c)
	}
	return cases, total, rows.Err()
}

func (s *PGStore) Update(ctx context.Context, c *Case) error {
	lawyers, _ := json.Marshal(c.LawyerIDs)
	res, err := s.db.ExecContext(ctx,
		`update cases set title=$2, client_id=$3, lawyer_ids=$4, description=$5, status=$6,
		  priority=$7, category=$8, closed_date=$9, updated_at=$10 where id=$1`,
		c.ID, c.Title, c.ClientID, lawyers, c.Description, string(c.Status),
		string(c.Priority), c.Category, c.ClosedDate, c.UpdatedAt)
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

func (s *PGStore) AddNote(ctx context.Context, id string, note Note) (*Case, error) {
	entry, _ := json.Marshal(note)
	res, err := s.db.ExecContext(ctx,
		`update cases set notes=notes || $2::jsonb, updated_at=$3 where id=$1`,
		id, entry, note.CreatedAt)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.Find(ctx, id)
}

func (s *PGStore) AddDeadline(ctx context.Context, id string, d Deadline) (*Case, error) {
	entry, _ := json.Marshal(d)
	res, err := s.db.ExecContext(ctx,
		`update cases set deadlines=deadlines || $2::jsonb where id=$1`,
		id, entry)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.Find(ctx, id)
}

func (s *PGStore) NextReference(ctx context.Context, yearMonth string) (int, error) {
	var seq int
	err := s.db.QueryRowContext(ctx,
		`insert into case_counters(year_month, seq) values($1, 1)
		 on conflict (year_month) do update set seq=case_counters.seq+1
		 returning seq`, yearMonth).Scan(&seq)
	return seq, err
}
