package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"legalflow/internal/policy"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL. Grants and signatures live in
// side tables keyed on (document_id, user_id); upserts use `on conflict`
// so concurrent requests cannot create duplicate entries.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const docColumns = `id, name, original_name, coalesce(description, ''), file_path, file_type,
	file_size, category, tags, coalesce(case_id, ''), owner_id, version, created_at, updated_at`

func scanDoc(row interface{ Scan(...any) error }) (*Document, error) {
	var (
		d    Document
		tags []byte
	)
	err := row.Scan(&d.ID, &d.Name, &d.OriginalName, &d.Description, &d.FilePath, &d.FileType,
		&d.FileSize, &d.Category, &tags, &d.CaseID, &d.OwnerID, &d.Version, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	_ = json.Unmarshal(tags, &d.Tags)
	return &d, nil
}

func (s *PGStore) Create(ctx context.Context, d *Document) error {
	tags, _ := json.Marshal(d.Tags)
	_, err := s.db.ExecContext(ctx,
		`insert into documents(id, name, original_name, description, file_path, file_type, file_size,
		  category, tags, case_id, owner_id, version, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,nullif($10,''),$11,$12,$13,$14)`,
		d.ID, d.Name, d.OriginalName, d.Description, d.FilePath, d.FileType, d.FileSize,
		d.Category, tags, d.CaseID, d.OwnerID, d.Version, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (s *PGStore) Find(ctx context.Context, id string) (*Document, error) {
	doc, err := scanDoc(s.db.QueryRowContext(ctx,
		`select `+docColumns+` from documents where id=$1`, id))
	if err != nil {
		return nil, err
	}
	if err := s.loadAccessState(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *PGStore) loadAccessState(ctx context.Context, d *Document) error {
	rows, err := s.db.QueryContext(ctx,
		`select user_id, permission from document_grants where document_id=$1 order by user_id`, d.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var g policy.Grant
		if err := rows.Scan(&g.UserID, &g.Level); err != nil {
			return err
		}
		d.SharedWith = append(d.SharedWith, g)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	sigRows, err := s.db.QueryContext(ctx,
		`select user_id, status, signed_at from document_signatures where document_id=$1 order by user_id`, d.ID)
	if err != nil {
		return err
	}
	defer sigRows.Close()
	for sigRows.Next() {
		var sig policy.Signature
		if err := sigRows.Scan(&sig.UserID, &sig.Status, &sig.SignedAt); err != nil {
			return err
		}
		d.Signatures = append(d.Signatures, sig)
	}
	return sigRows.Err()
}

func (s *PGStore) List(ctx context.Context, f Filter) ([]*Document, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.CaseID != "" {
		where = append(where, "case_id="+arg(f.CaseID))
	}
	if f.Category != "" {
		where = append(where, "category="+arg(f.Category))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where = append(where, "(name ilike "+p+" or description ilike "+p+" or tags::text ilike "+p+")")
	}
	if f.VisibleTo != "" {
		p := arg(f.VisibleTo)
		where = append(where, "(owner_id="+p+
			" or exists(select 1 from document_grants g where g.document_id=documents.id and g.user_id="+p+"))")
	}
	clause := ""
	if len(where) > 0 {
		clause = " where " + strings.Join(where, " and ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from documents`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`select %s from documents%s order by created_at desc limit %s offset %s`,
		docColumns, clause, arg(f.Limit), arg(f.Offset))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d, err := scanDoc(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for _, d := range docs {
		if err := s.loadAccessState(ctx, d); err != nil {
			return nil, 0, err
		}
	}
	return docs, total, nil
}

func (s *PGStore) UpdateMeta(ctx context.Context, d *Document) error {
	tags, _ := json.Marshal(d.Tags)
	res, err := s.db.ExecContext(ctx,
		`update documents set name=$2, description=$3, category=$4, tags=$5, version=$6, updated_at=$7 where id=$1`,
		d.ID, d.Name, d.Description, d.Category, tags, d.Version, d.UpdatedAt)
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

func (s *PGStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from documents where id=$1`, id)
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

func (s *PGStore) UpsertGrant(ctx context.Context, docID, userID string, level policy.Level) (*Document, error) {
	res, err := s.db.ExecContext(ctx,
		`insert into document_grants(document_id, user_id, permission)
		 select $1, $2, $3 where exists(select 1 from documents where id=$1)
		 on conflict (document_id, user_id) do update set permission=excluded.permission`,
		docID, userID, string(level))
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
	return s.Find(ctx, docID)
}

func (s *PGStore) UpsertSignature(ctx context.Context, docID, userID string, status policy.SignatureStatus, at time.Time, onlyIfAbsent bool) (*Document, error) {
	var signedAt any
	if status != policy.SignaturePending {
		signedAt = at
	}
	query := `insert into document_signatures(document_id, user_id, status, signed_at)
		 select $1, $2, $3, $4 where exists(select 1 from documents where id=$1)
		 on conflict (document_id, user_id) do update set status=excluded.status, signed_at=excluded.signed_at`
	if onlyIfAbsent {
		query = `insert into document_signatures(document_id, user_id, status, signed_at)
		 select $1, $2, $3, $4 where exists(select 1 from documents where id=$1)
		 on conflict (document_id, user_id) do nothing`
	}
	if _, err := s.db.ExecContext(ctx, query, docID, userID, string(status), signedAt); err != nil {
		return nil, err
	}
	return s.Find(ctx, docID)
}
