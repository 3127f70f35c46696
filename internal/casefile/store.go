package casefile

import "context"

// Filter narrows List results.
type Filter struct {
	ClientID string
	LawyerID string
	Status   Status
	Limit    int
	Offset   int
}

// Store describes persistence for cases. NextReference must be atomic per
// month so two concurrent creates never share a sequence number.
type Store interface {
	Create(ctx context.Context, c *Case) error
	Find(ctx context.Context, id string) (*Case, error)
	List(ctx context.Context, f Filter) ([]*Case, int, error)
	Update(ctx context.Context, c *Case) error
	AddNote(ctx context.Context, id string, note Note) (*Case, error)
	AddDeadline(ctx context.Context, id string, d Deadline) (*Case, error)
	NextReference(ctx context.Context, yearMonth string) (int, error)
}
