package web

import (
	"fmt"
	"strconv"
	"time"

	"github.com/distsocial/streamnode/domain"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// authorJSON is the author object embedded in wire documents.
type authorJSON struct {
	Id          string `json:"id"`
	Host        string `json:"host"`
	DisplayName string `json:"displayName"`
	URL         string `json:"url"`
}

// postJSON is the post document served to peers and local clients.
type postJSON struct {
	Id          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Content     string     `json:"content"`
	ContentType string     `json:"contentType"`
	Author      authorJSON `json:"author"`
	Visibility  string     `json:"visibility"`
	Unlisted    bool       `json:"unlisted"`
	Published   string     `json:"published"`
	Categories  []string   `json:"categories"`
	VisibleTo   []string   `json:"visibleTo,omitempty"`
}

// postsPage is the pagination envelope of the posts endpoints.
type postsPage struct {
	Query    string     `json:"query"`
	Count    int        `json:"count"`
	Size     int        `json:"size"`
	Posts    []postJSON `json:"posts"`
	Next     string     `json:"next,omitempty"`
	Previous string     `json:"previous,omitempty"`
}

type commentJSON struct {
	Id          string     `json:"id"`
	Author      authorJSON `json:"author"`
	Comment     string     `json:"comment"`
	ContentType string     `json:"contentType"`
	Published   string     `json:"published"`
}

func viewToJSON(v domain.PostView) postJSON {
	categories := v.Categories
	if categories == nil {
		categories = []string{}
	}
	return postJSON{
		Id:          v.Id,
		Title:       v.Title,
		Description: v.Description,
		Content:     v.Content,
		ContentType: v.ContentType,
		Author: authorJSON{
			Id:          v.AuthorId,
			Host:        v.AuthorHost,
			DisplayName: v.AuthorName,
			URL:         v.AuthorId,
		},
		Visibility: v.Visibility,
		Unlisted:   v.Unlisted,
		Published:  v.Published.Format(time.RFC3339),
		Categories: categories,
		VisibleTo:  v.VisibleTo,
	}
}

func viewsToJSON(views []domain.PostView) []postJSON {
	docs := make([]postJSON, 0, len(views))
	for _, v := range views {
		docs = append(docs, viewToJSON(v))
	}
	return docs
}

// pageParams parses ?page= and ?size=. Pages are one-indexed; a size
// over the cap is clamped, not rejected.
func pageParams(c *gin.Context) (int, int, bool) {
	page, size := 1, defaultPageSize

	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			invalidField(c, "page", raw)
			return 0, 0, false
		}
		page = parsed
	}
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			invalidField(c, "size", raw)
			return 0, 0, false
		}
		size = parsed
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size, true
}

// paginate wraps one page of post documents in the envelope, with next
// and previous links relative to baseURL.
func paginate(baseURL string, page, size, count int, posts []postJSON) postsPage {
	envelope := postsPage{
		Query: "posts",
		Count: count,
		Size:  size,
		Posts: posts,
	}
	if page*size < count {
		envelope.Next = fmt.Sprintf("%s?page=%d&size=%d", baseURL, page+1, size)
	}
	if page > 1 {
		envelope.Previous = fmt.Sprintf("%s?page=%d&size=%d", baseURL, page-1, size)
	}
	return envelope
}
