package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users(ctx context.Context) UserStore       { return &pgUserStore{db: s.db} }
func (s *PGStore) Profiles(ctx context.Context) ProfileStore { return &pgProfileStore{db: s.db} }

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// User store ---------------------------------------------------------------
type pgUserStore struct{ db *sql.DB }

const userColumns = `id, email, password_hash, first_name, last_name, role, phone, active,
	coalesce(reset_token_hash, ''), reset_token_expires_at, last_login, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role,
		&u.Phone, &u.Active, &u.ResetTokenHash, &u.ResetTokenExpiresAt, &u.LastLogin,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *pgUserStore) Create(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, password_hash, first_name, last_name, role, phone, active, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role, u.Phone, u.Active,
		u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *pgUserStore) Find(ctx context.Context, id string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id))
}

func (s *pgUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, email))
}

func (s *pgUserStore) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users order by created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *pgUserStore) UpdateStatus(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`update users set active=$2, updated_at=now() where id=$1`, id, active)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *pgUserStore) TouchLastLogin(ctx context.Context, id string, when time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update users set last_login=$2 where id=$1`, id, when)
	return err
}

func (s *pgUserStore) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update users set reset_token_hash=$2, reset_token_expires_at=$3, updated_at=now() where id=$1`,
		id, tokenHash, expiresAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ConsumeResetToken is a single conditional UPDATE: the password changes and
// the token clears together, or the row does not match at all. Two requests
// racing on the same token cannot both succeed.
func (s *pgUserStore) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`update users
		 set password_hash=$2, reset_token_hash=null, reset_token_expires_at=null, updated_at=$3
		 where reset_token_hash=$1 and reset_token_expires_at > $3
		 returning `+userColumns,
		tokenHash, passwordHash, now)
	u, err := scanUser(row)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidResetToken
	}
	return u, err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Profile store ------------------------------------------------------------
type pgProfileStore struct{ db *sql.DB }

func (s *pgProfileStore) CreateLawyer(ctx context.Context, p *LawyerProfile) error {
	specialties, _ := json.Marshal(p.Specialties)
	_, err := s.db.ExecContext(ctx,
		`insert into lawyer_profiles(user_id, bar_number, specialties, bio, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6)`,
		p.UserID, p.BarNumber, specialties, p.Bio, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *pgProfileStore) CreateClient(ctx context.Context, p *ClientProfile) error {
	address, _ := json.Marshal(p.Address)
	company, _ := json.Marshal(p.Company)
	matters, _ := json.Marshal(p.Matters)
	_, err := s.db.ExecContext(ctx,
		`insert into client_profiles(user_id, address, company, matters, referral_source, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		p.UserID, address, company, matters, p.ReferralSource, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *pgProfileStore) FindLawyer(ctx context.Context, userID string) (*LawyerProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`select user_id, bar_number, specialties, coalesce(bio, ''), created_at, updated_at
		 from lawyer_profiles where user_id=$1`, userID)
	var (
		p           LawyerProfile
		specialties []byte
	)
	if err := row.Scan(&p.UserID, &p.BarNumber, &specialties, &p.Bio, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	_ = json.Unmarshal(specialties, &p.Specialties)
	return &p, nil
}

func (s *pgProfileStore) FindClient(ctx context.Context, userID string) (*ClientProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`select user_id, address, company, matters, coalesce(referral_source, ''), created_at, updated_at
		 from client_profiles where user_id=$1`, userID)
	var (
		p        ClientProfile
		address  []byte
		company  []byte
		matters  []byte
	)
	if err := row.Scan(&p.UserID, &address, &company, &matters, &p.ReferralSource, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	_ = json.Unmarshal(address, &p.Address)
	_ = json.Unmarshal(company, &p.Company)
	_ = json.Unmarshal(matters, &p.Matters)
	return &p, nil
}
