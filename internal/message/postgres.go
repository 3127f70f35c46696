package message

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL. MarkRead is a conditional
// update so concurrent readers cannot move an existing read timestamp.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const msgColumns = `id, sender_id, recipient_id, coalesce(case_id, ''), coalesce(subject, ''), body, read_at, created_at`

func scanMsg(row interface{ Scan(...any) error }) (*Message, error) {
	var (
		m    Message
		read sql.NullTime
	)
	err := row.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.CaseID, &m.Subject, &m.Body, &read, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if read.Valid {
		t := read.Time
		m.ReadAt = &t
	}
	return &m, nil
}

func (s *PGStore) Create(ctx context.Context, m *Message) error {
	_, err := s.db.ExecContext(ctx,
		`insert into messages(id, sender_id, recipient_id, case_id, subject, body, read_at, created_at)
		 values($1,$2,$3,nullif($4,''),$5,$6,$7,$8)`,
		m.ID, m.SenderID, m.RecipientID, m.CaseID, m.Subject, m.Body, m.ReadAt, m.CreatedAt)
	return err
}

func (s *PGStore) Find(ctx context.Context, id string) (*Message, error) {
	return scanMsg(s.db.QueryRowContext(ctx,
		`select `+msgColumns+` from messages where id=$1`, id))
}

func (s *PGStore) Thread(ctx context.Context, userA, userB string, limit, offset int) ([]*Message, int, error) {
	const pair = `((sender_id=$1 and recipient_id=$2) or (sender_id=$2 and recipient_id=$1))`

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from messages where `+pair, userA, userB).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`select `+msgColumns+` from messages where `+pair+
			` order by created_at asc limit $3 offset $4`,
		userA, userB, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		m, err := scanMsg(rows)
		if err != nil {
			return nil, 0, err
		}
		msgs = append(msgs, m)
	}
	return msgs, total, rows.Err()
}

func (s *PGStore) Conversations(ctx context.Context, userID string) ([]*Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`select distinct on (peer) peer, `+msgColumns+` from (
		   select case when sender_id=$1 then recipient_id else sender_id end as peer, *
		   from messages where sender_id=$1 or recipient_id=$1
		 ) t order by peer, created_at desc`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convos []*Conversation
	for rows.Next() {
		var (
			c    Conversation
			m    Message
			read sql.NullTime
		)
		err := rows.Scan(&c.PeerID, &m.ID, &m.SenderID, &m.RecipientID, &m.CaseID,
			&m.Subject, &m.Body, &read, &m.CreatedAt)
		if err != nil {
			return nil, err
		}
		if read.Valid {
			t := read.Time
			m.ReadAt = &t
		}
		c.LastMessage = &m
		c.UpdatedAt = m.CreatedAt
		convos = append(convos, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, c := range convos {
		err := s.db.QueryRowContext(ctx,
			`select count(*) from messages
			 where recipient_id=$1 and sender_id=$2 and read_at is null`,
			userID, c.PeerID).Scan(&c.Unread)
		if err != nil {
			return nil, err
		}
	}
	sort.Slice(convos, func(i, j int) bool { return convos[i].UpdatedAt.After(convos[j].UpdatedAt) })
	return convos, nil
}

func (s *PGStore) MarkRead(ctx context.Context, id string, at time.Time) (*Message, error) {
	_, err := s.db.ExecContext(ctx,
		`update messages set read_at=$2 where id=$1 and read_at is null`, id, at)
	if err != nil {
		return nil, err
	}
	return s.Find(ctx, id)
}

func (s *PGStore) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`select count(*) from messages where recipient_id=$1 and read_at is null`, userID).Scan(&n)
	return n, err
}
