package resolve

import (
	"context"
	"log"
	"sort"

	"github.com/distsocial/streamnode/domain"
	"golang.org/x/sync/errgroup"
)

// BuildStream assembles the reverse-chronological stream for viewer:
// every local post plus the listable posts of every registered node,
// all passed through the visibility filter. Nodes are fetched
// concurrently with a bounded fan-out; a node that fails or runs past
// its timeout is skipped, the stream is built from whatever answered.
func (r *Resolver) BuildStream(ctx context.Context, viewer string) []domain.PostView {
	candidates := r.localCandidates()

	nodes := r.registry.Nodes()
	remote := make([][]domain.PostView, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxFetches)
	for i, node := range nodes {
		i, node := i, node
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, r.timeout)
			defer cancel()
			views, err := r.client.FetchPosts(fctx, node)
			if err != nil {
				log.Printf("skipping node %s: %s", node.URL, err)
				return nil
			}
			remote[i] = views
			return nil
		})
	}
	g.Wait()

	// Registry order keeps ties stable across builds
	for _, views := range remote {
		candidates = append(candidates, views...)
	}

	stream := r.VisiblePosts(ctx, viewer, candidates)
	sort.SliceStable(stream, func(i, j int) bool {
		return stream[i].Published.After(stream[j].Published)
	})
	return stream
}

func (r *Resolver) localCandidates() []domain.PostView {
	err, posts := r.db.ReadAllPosts()
	if err != nil {
		log.Printf("reading local posts failed: %s", err)
		return nil
	}

	authors := make(map[string]*domain.Author)
	views := make([]domain.PostView, 0, len(*posts))
	for i := range *posts {
		post := &(*posts)[i]
		author, ok := authors[post.AuthorId]
		if !ok {
			if err, author = r.db.FindAuthorById(post.AuthorId); err != nil {
				log.Printf("author lookup for %s failed: %s", post.AuthorId, err)
			}
			authors[post.AuthorId] = author
		}
		views = append(views, post.View(author))
	}
	return views
}
