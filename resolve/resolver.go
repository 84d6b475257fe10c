package resolve

import (
	"context"
	"log"
	"time"

	"github.com/distsocial/streamnode/db"
	"github.com/distsocial/streamnode/federation"
	"github.com/distsocial/streamnode/util"
	"golang.org/x/sync/errgroup"
)

// foafDepth bounds the friend-of-a-friend traversal. Depth 1 is a direct
// friend, depth 2 is a friend of a friend.
const foafDepth = 2

// Resolver answers friendship questions over the combined local and
// federated follow graph. Every remote failure degrades to "not friends"
// and never surfaces as an error, so all methods return plain values.
type Resolver struct {
	db         *db.DB
	client     *federation.Client
	registry   *federation.Registry
	maxFetches int
	timeout    time.Duration
}

func NewResolver(database *db.DB, registry *federation.Registry, client *federation.Client, conf *util.AppConfig) *Resolver {
	maxFetches := conf.Conf.MaxFetches
	if maxFetches <= 0 {
		maxFetches = 8
	}
	timeout := time.Duration(conf.Conf.FetchTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{
		db:         database,
		client:     client,
		registry:   registry,
		maxFetches: maxFetches,
		timeout:    timeout,
	}
}

// FriendsOf returns the authors mutually following a. For a local author
// the following list comes from our own follow table and each target is
// back-checked; for a remote author both the following list and every
// back-check go over the wire. A hop that fails contributes nothing.
func (r *Resolver) FriendsOf(ctx context.Context, a string) []string {
	following := r.followingOf(ctx, a)
	if len(following) == 0 {
		return nil
	}

	confirmed := make([]bool, len(following))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxFetches)
	for i, target := range following {
		i, target := i, target
		g.Go(func() error {
			confirmed[i] = r.follows(gctx, target, a)
			return nil
		})
	}
	g.Wait()

	var friends []string
	for i, target := range following {
		if confirmed[i] {
			friends = append(friends, target)
		}
	}
	return friends
}

// IsFriend reports whether a and b follow each other.
func (r *Resolver) IsFriend(ctx context.Context, a, b string) bool {
	if a == "" || b == "" || util.SameIdentity(a, b) {
		return false
	}
	return r.follows(ctx, a, b) && r.follows(ctx, b, a)
}

// IsFOAF reports whether b is within two mutual-follow hops of a. Direct
// friends are included. The traversal is breadth-first with a visited
// set, so cyclic or malicious remote data cannot make it loop.
func (r *Resolver) IsFOAF(ctx context.Context, a, b string) bool {
	if a == "" || b == "" || util.SameIdentity(a, b) {
		return false
	}

	visited := map[string]bool{util.IdentityKey(a): true}
	frontier := []string{a}
	for depth := 0; depth < foafDepth; depth++ {
		var next []string
		for _, id := range frontier {
			for _, friend := range r.FriendsOf(ctx, id) {
				if util.SameIdentity(friend, b) {
					return true
				}
				key := util.IdentityKey(friend)
				if visited[key] {
					continue
				}
				visited[key] = true
				next = append(next, friend)
			}
		}
		frontier = next
	}
	return false
}

// followingOf lists who a follows: the local follow table when a is one
// of ours, the owning node's friends endpoint otherwise.
func (r *Resolver) followingOf(ctx context.Context, a string) []string {
	err, author := r.db.FindAuthorById(a)
	if err != nil {
		log.Printf("follow lookup for %s failed: %s", a, err)
		return nil
	}

	if author != nil {
		err, follows := r.db.ReadFollowsByAuthor(a)
		if err != nil {
			log.Printf("follow lookup for %s failed: %s", a, err)
			return nil
		}
		targets := make([]string, 0, len(*follows))
		for _, f := range *follows {
			targets = append(targets, f.FriendId)
		}
		return targets
	}

	fctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	friends, err := r.client.FetchFriends(fctx, a)
	if err != nil {
		log.Printf("remote friends fetch for %s failed: %s", a, err)
		return nil
	}
	return friends
}

// follows reports whether from follows to, degrading to false on any
// lookup failure.
func (r *Resolver) follows(ctx context.Context, from, to string) bool {
	err, author := r.db.FindAuthorById(from)
	if err != nil {
		return false
	}

	if author != nil {
		err, exists := r.db.FollowExists(from, to)
		return err == nil && exists
	}

	fctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	friends, err := r.client.FetchFriends(fctx, from)
	if err != nil {
		return false
	}
	for _, friend := range friends {
		if util.SameIdentity(friend, to) {
			return true
		}
	}
	return false
}
