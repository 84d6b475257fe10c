package domain

import (
	"fmt"
	"time"
)

// Follow is a directed edge: AuthorId follows FriendId. A friendship is
// never stored; it is derived from a pair of opposite edges, and for
// cross-node pairs the remote half is re-verified against the remote
// node's own follow list.
type Follow struct {
	AuthorId    string // local author URI, owns the edge
	FriendId    string // followed author URI, possibly remote
	DisplayName string // cached display name of the followed author
	CreatedAt   time.Time
}

func (f *Follow) ToString() string {
	return fmt.Sprintf("\n\t%s follows %s (since %s)", f.AuthorId, f.FriendId, f.CreatedAt)
}

// FriendRequest is a pending proposal from RequesterId towards a local
// author. Accept and reject are both terminal: the row is deleted either
// way, accept additionally materializes the reciprocal Follow edge.
type FriendRequest struct {
	RequesterId string // author URI, possibly remote
	RequesteeId string // local author URI
	CreatedAt   time.Time
}

func (fr *FriendRequest) ToString() string {
	return fmt.Sprintf("\n\t%s requested %s (at %s)", fr.RequesterId, fr.RequesteeId, fr.CreatedAt)
}
