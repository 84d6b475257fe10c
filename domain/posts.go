package domain

import (
	"errors"
	"fmt"
	"time"
)

const (
	VisibilityPublic     = "PUBLIC"
	VisibilityFOAF       = "FOAF"
	VisibilityFriends    = "FRIENDS"
	VisibilityPrivate    = "PRIVATE"
	VisibilityServerOnly = "SERVERONLY"
)

var (
	// ErrVisibleToNotPrivate rejects writes that set an explicit reader
	// list on anything but a PRIVATE post.
	ErrVisibleToNotPrivate = errors.New("visibleTo requires visibility PRIVATE")

	ErrBadVisibility = errors.New("unknown visibility")
)

// ValidVisibility reports whether v is one of the five visibility classes.
func ValidVisibility(v string) bool {
	switch v {
	case VisibilityPublic, VisibilityFOAF, VisibilityFriends, VisibilityPrivate, VisibilityServerOnly:
		return true
	}
	return false
}

// Post is a locally stored post row. Id is a URI.
type Post struct {
	Id          string // http://host/posts/<hex>/
	AuthorId    string
	Title       string
	Description string
	Content     string
	ContentType string
	Visibility  string
	Unlisted    bool
	Published   time.Time
	Categories  []string
	VisibleTo   []string // author URIs, only meaningful for PRIVATE
}

// Validate enforces the write-time invariants. A post that fails here
// must never reach the store.
func (p *Post) Validate() error {
	if !ValidVisibility(p.Visibility) {
		return ErrBadVisibility
	}
	if len(p.VisibleTo) > 0 && p.Visibility != VisibilityPrivate {
		return ErrVisibleToNotPrivate
	}
	return nil
}

func (p *Post) ToString() string {
	return fmt.Sprintf("\n\tId: %s \n\tAuthorId: %s \n\tTitle: %s \n\tVisibility: %s)", p.Id, p.AuthorId, p.Title, p.Visibility)
}

// PostView is the normalized shape every candidate takes before
// filtering, whether it came from a local row or a remote JSON document.
type PostView struct {
	Id          string
	AuthorId    string
	AuthorHost  string
	AuthorName  string
	Title       string
	Description string
	Content     string
	ContentType string
	Visibility  string
	Unlisted    bool
	Published   time.Time
	Categories  []string
	VisibleTo   []string
	Local       bool
}

// View normalizes a local post row into a PostView. The author row
// supplies host and display name; a nil author leaves them empty.
func (p *Post) View(author *Author) PostView {
	view := PostView{
		Id:          p.Id,
		AuthorId:    p.AuthorId,
		Title:       p.Title,
		Description: p.Description,
		Content:     p.Content,
		ContentType: p.ContentType,
		Visibility:  p.Visibility,
		Unlisted:    p.Unlisted,
		Published:   p.Published,
		Categories:  p.Categories,
		VisibleTo:   p.VisibleTo,
		Local:       true,
	}
	if author != nil {
		view.AuthorHost = author.Host
		view.AuthorName = author.DisplayName
	}
	return view
}
