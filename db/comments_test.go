package db

import (
	"testing"
	"time"

	"github.com/distsocial/streamnode/domain"
	"github.com/google/uuid"
)

func TestCreateAndReadComments(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	first := &domain.Comment{
		Id:          uuid.New(),
		PostId:      "http://example.com/posts/1/",
		AuthorId:    "http://other.com/author/x/",
		Comment:     "first!",
		ContentType: "text/plain",
		Published:   time.Now().Add(-time.Minute),
	}
	second := &domain.Comment{
		Id:          uuid.New(),
		PostId:      "http://example.com/posts/1/",
		AuthorId:    "http://example.com/author/a/",
		Comment:     "second",
		ContentType: "text/markdown",
		Published:   time.Now(),
	}

	if err := db.CreateComment(second); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	if err := db.CreateComment(first); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	err, comments := db.ReadCommentsByPost("http://example.com/posts/1/")
	if err != nil {
		t.Fatalf("ReadCommentsByPost failed: %v", err)
	}
	if len(*comments) != 2 {
		t.Fatalf("Expected 2 comments, got %d", len(*comments))
	}

	// Oldest first
	if (*comments)[0].Comment != "first!" {
		t.Errorf("Expected oldest comment first, got '%s'", (*comments)[0].Comment)
	}
}

func TestCreateCommentFillsDefaults(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	comment := &domain.Comment{
		PostId:   "http://example.com/posts/1/",
		AuthorId: "http://example.com/author/a/",
		Comment:  "no id, no published",
	}

	if err := db.CreateComment(comment); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	err, comments := db.ReadCommentsByPost("http://example.com/posts/1/")
	if err != nil {
		t.Fatalf("ReadCommentsByPost failed: %v", err)
	}
	if len(*comments) != 1 {
		t.Fatalf("Expected 1 comment, got %d", len(*comments))
	}
	if (*comments)[0].Id == uuid.Nil {
		t.Error("Expected generated comment id")
	}
	if (*comments)[0].Published.IsZero() {
		t.Error("Expected published timestamp to be set")
	}
}

func TestRemoteCommentAuthorUpsert(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	rca := &domain.RemoteCommentAuthor{
		AuthorId:    "http://other.com/author/x/",
		Host:        "http://other.com",
		DisplayName: "Xavier",
	}
	if err := db.UpsertRemoteCommentAuthor(rca); err != nil {
		t.Fatalf("UpsertRemoteCommentAuthor failed: %v", err)
	}

	// New comment from the same identity refreshes the cached name
	rca.DisplayName = "Xavier Renamed"
	if err := db.UpsertRemoteCommentAuthor(rca); err != nil {
		t.Fatalf("Upsert on existing author failed: %v", err)
	}

	err, cached := db.FindRemoteCommentAuthor("http://other.com/author/x/")
	if err != nil {
		t.Fatalf("FindRemoteCommentAuthor failed: %v", err)
	}
	if cached == nil {
		t.Fatal("Expected cached author")
	}
	if cached.DisplayName != "Xavier Renamed" {
		t.Errorf("Expected refreshed display name, got '%s'", cached.DisplayName)
	}
}

func TestFindRemoteCommentAuthorMissing(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	err, cached := db.FindRemoteCommentAuthor("http://other.com/author/nobody/")
	if err != nil || cached != nil {
		t.Error("Expected (nil, nil) for unknown remote comment author")
	}
}
