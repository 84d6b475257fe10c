package resolve

import (
	"context"

	"github.com/distsocial/streamnode/domain"
	"github.com/distsocial/streamnode/util"
)

// VisiblePosts filters candidates down to what viewer may see, keeping
// input order. Pure with respect to local state; FRIENDS and FOAF
// decisions may trigger remote calls through the resolver, and any
// failure there means the post stays hidden.
func (r *Resolver) VisiblePosts(ctx context.Context, viewer string, candidates []domain.PostView) []domain.PostView {
	memo := make(map[string]bool)
	visible := make([]domain.PostView, 0, len(candidates))
	for _, post := range candidates {
		if r.visible(ctx, viewer, post, memo) {
			visible = append(visible, post)
		}
	}
	return visible
}

// Visible decides a single candidate.
func (r *Resolver) Visible(ctx context.Context, viewer string, post domain.PostView) bool {
	return r.visible(ctx, viewer, post, make(map[string]bool))
}

// visible is the per-post decision table, first match wins. The memo
// caches friend/foaf answers per author so a page of posts by the same
// author costs one graph walk, not one per post.
func (r *Resolver) visible(ctx context.Context, viewer string, post domain.PostView, memo map[string]bool) bool {
	ownPost := util.SameIdentity(viewer, post.AuthorId)

	switch {
	case post.Unlisted && !ownPost:
		return false
	case post.Visibility == domain.VisibilityServerOnly && !util.SameHost(viewer, post.AuthorId):
		return false
	case post.Visibility == domain.VisibilityPublic:
		return true
	case post.Visibility == domain.VisibilityServerOnly:
		return true
	case ownPost:
		return true
	case post.Visibility == domain.VisibilityPrivate:
		for _, uri := range post.VisibleTo {
			if util.SameIdentity(viewer, uri) {
				return true
			}
		}
		return false
	case post.Visibility == domain.VisibilityFriends:
		return r.memoized(memo, "friend:"+util.IdentityKey(post.AuthorId), func() bool {
			return r.IsFriend(ctx, post.AuthorId, viewer)
		})
	case post.Visibility == domain.VisibilityFOAF:
		return r.memoized(memo, "foaf:"+util.IdentityKey(post.AuthorId), func() bool {
			return r.IsFOAF(ctx, post.AuthorId, viewer)
		})
	}
	return false
}

func (r *Resolver) memoized(memo map[string]bool, key string, check func() bool) bool {
	if answer, ok := memo[key]; ok {
		return answer
	}
	answer := check()
	memo[key] = answer
	return answer
}
