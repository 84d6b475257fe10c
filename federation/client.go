package federation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/distsocial/streamnode/domain"
	"github.com/distsocial/streamnode/util"
)

// ErrUnknownNode means a URI's host matched no registered node. Callers
// treat it like any other remote failure: degrade, never propagate.
var ErrUnknownNode = errors.New("no registered node for host")

// maxPages bounds how far FetchPosts walks a remote node's pagination.
const maxPages = 10

// Client performs authenticated HTTP calls against remote nodes and
// normalizes their heterogeneous response shapes. All calls are
// time-bounded; every failure mode (non-2xx, timeout, bad JSON) comes
// back as an error for the caller to degrade on.
type Client struct {
	registry *Registry
	http     *http.Client
}

func NewClient(registry *Registry, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		registry: registry,
		http:     &http.Client{Timeout: timeout},
	}
}

// authorDoc is the author object remote nodes embed in posts.
type authorDoc struct {
	Id          string `json:"id"`
	Host        string `json:"host"`
	DisplayName string `json:"displayName"`
	URL         string `json:"url"`
}

// postDoc is a remote post document. Only id and author are trusted to
// be present; everything else gets a default when absent.
type postDoc struct {
	Id          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	ContentType string    `json:"contentType"`
	Author      authorDoc `json:"author"`
	Visibility  string    `json:"visibility"`
	Unlisted    bool      `json:"unlisted"`
	Published   string    `json:"published"`
	Categories  []string  `json:"categories"`
	VisibleTo   []string  `json:"visibleTo"`
}

type postsEnvelope struct {
	Query string    `json:"query"`
	Count int       `json:"count"`
	Size  int       `json:"size"`
	Posts []postDoc `json:"posts"`
	Next  string    `json:"next"`
}

type friendsEnvelope struct {
	Query   string   `json:"query"`
	Authors []string `json:"authors"`
}

// FetchPosts retrieves the listable posts of a remote node, walking its
// pagination up to maxPages.
func (c *Client) FetchPosts(ctx context.Context, node Node) ([]domain.PostView, error) {
	url := strings.TrimSuffix(node.URL, "/") + "/posts/"

	var views []domain.PostView
	for page := 0; page < maxPages && url != ""; page++ {
		body, err := c.get(ctx, url, node)
		if err != nil {
			return nil, err
		}

		var envelope postsEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("malformed posts body from %s: %w", node.URL, err)
		}

		for _, doc := range envelope.Posts {
			views = append(views, normalizePost(doc))
		}

		// A next link pointing off the node would receive our outbound
		// credentials; never follow it.
		if envelope.Next != "" && !util.SameHost(envelope.Next, node.URL) {
			return nil, fmt.Errorf("offsite pagination link %s from %s", envelope.Next, node.URL)
		}
		url = envelope.Next
	}

	return views, nil
}

// FetchFriends retrieves the friends list a remote node serves for one
// of its authors. The owning node is resolved by URI host.
func (c *Client) FetchFriends(ctx context.Context, authorURI string) ([]string, error) {
	node := c.registry.NodeForURI(authorURI)
	if node == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, util.HostOf(authorURI))
	}

	url := util.NormalizeURI(authorURI) + "friends/"
	body, err := c.get(ctx, url, *node)
	if err != nil {
		return nil, err
	}

	var envelope friendsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("malformed friends body for %s: %w", authorURI, err)
	}

	return envelope.Authors, nil
}

func (c *Client) get(ctx context.Context, url string, node Node) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "streamnode/1.0")
	if node.OutUsername != "" {
		req.SetBasicAuth(node.OutUsername, node.OutPassword)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	return body, nil
}

// normalizePost turns a remote document into an internally consistent
// PostView. Incomplete data is not an error: missing visibility means
// PUBLIC, missing unlisted means false.
func normalizePost(doc postDoc) domain.PostView {
	visibility := strings.ToUpper(strings.TrimSpace(doc.Visibility))
	if !domain.ValidVisibility(visibility) {
		visibility = domain.VisibilityPublic
	}

	host := doc.Author.Host
	if host == "" {
		host = util.HostOf(doc.Author.Id)
	}

	return domain.PostView{
		Id:          doc.Id,
		AuthorId:    doc.Author.Id,
		AuthorHost:  host,
		AuthorName:  doc.Author.DisplayName,
		Title:       doc.Title,
		Description: doc.Description,
		Content:     doc.Content,
		ContentType: doc.ContentType,
		Visibility:  visibility,
		Unlisted:    doc.Unlisted,
		Published:   parsePublished(doc.Published),
		Categories:  doc.Categories,
		VisibleTo:   doc.VisibleTo,
		Local:       false,
	}
}

// parsePublished accepts the timestamp formats seen in the wild and
// falls back to the zero time, which sorts such posts last.
func parsePublished(value string) time.Time {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}
