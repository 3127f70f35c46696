package document

import (
	"errors"
	"strings"
	"time"

	"legalflow/internal/policy"
)

var (
	ErrNotFound     = errors.New("document: not found")
	ErrInvalidInput = errors.New("document: invalid input")
	ErrForbidden    = errors.New("document: forbidden")
)

// Category values for filed documents.
const (
	CategoryTaxReturn      = "tax_return"
	CategoryTaxLitigation  = "tax_litigation"
	CategoryContract       = "contract"
	CategoryAdvice         = "advice"
	CategoryLegalService   = "legal_service"
	CategoryProcedure      = "procedure"
	CategoryCorrespondence = "correspondence"
	CategorySupporting     = "supporting"
	CategoryOther          = "other"
)

var categories = map[string]struct{}{
	CategoryTaxReturn:      {},
	CategoryTaxLitigation:  {},
	CategoryContract:       {},
	CategoryAdvice:         {},
	CategoryLegalService:   {},
	CategoryProcedure:      {},
	CategoryCorrespondence: {},
	CategorySupporting:     {},
	CategoryOther:          {},
}

// NormalizeCategory maps empty input to CategoryOther and rejects unknown
// values.
func NormalizeCategory(s string) (string, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return CategoryOther, nil
	}
	if _, ok := categories[s]; !ok {
		return "", ErrInvalidInput
	}
	return s, nil
}

// Document is an uploaded file's metadata together with its access state:
// the owner, the explicit grants, and the signature entries. FilePath is
// the blob location and never serializes.
type Document struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	OriginalName string             `json:"original_name"`
	Description  string             `json:"description,omitempty"`
	FilePath     string             `json:"-"`
	FileType     string             `json:"file_type"`
	FileSize     int64              `json:"file_size"`
	Category     string             `json:"category"`
	Tags         []string           `json:"tags,omitempty"`
	CaseID       string             `json:"case_id,omitempty"`
	OwnerID      string             `json:"owner_id"`
	Version      int                `json:"version"`
	SharedWith   []policy.Grant     `json:"shared_with,omitempty"`
	Signatures   []policy.Signature `json:"signatures,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// AccessState returns the policy snapshot used for decisions.
func (d *Document) AccessState() policy.Resource {
	return policy.Resource{
		OwnerID:    d.OwnerID,
		Grants:     d.SharedWith,
		Signatures: d.Signatures,
	}
}
