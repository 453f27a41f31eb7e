package models

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// Pagination selects a window of a user's transaction log, newest first.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Normalize clamps the window to sane bounds: non-negative offset, limit
// defaulting to 50 and capped at 200.
func (p Pagination) Normalize() Pagination {
	out := p
	if out.Limit <= 0 {
		out.Limit = defaultPageLimit
	}
	if out.Limit > maxPageLimit {
		out.Limit = maxPageLimit
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	return out
}
