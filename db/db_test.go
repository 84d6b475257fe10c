package db

import (
	"testing"
	"time"

	"github.com/distsocial/streamnode/domain"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *DB {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	return db
}

func createTestAuthor(t *testing.T, db *DB, id, username string) *domain.Author {
	a := &domain.Author{
		Id:          id,
		Username:    username,
		DisplayName: username,
		Host:        "http://example.com",
		CreatedAt:   time.Now(),
	}
	if err := db.CreateAuthor(a); err != nil {
		t.Fatalf("Failed to create test author: %v", err)
	}
	return a
}

func TestFindAuthorById(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	createTestAuthor(t, db, "http://example.com/author/abc/", "alice")

	err, a := db.FindAuthorById("http://example.com/author/abc/")
	if err != nil {
		t.Fatalf("FindAuthorById failed: %v", err)
	}
	if a == nil {
		t.Fatal("Expected author, got nil")
	}
	if a.Username != "alice" {
		t.Errorf("Expected Username 'alice', got '%s'", a.Username)
	}
}

func TestFindAuthorByIdSchemeMismatch(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	createTestAuthor(t, db, "http://example.com/author/abc/", "alice")

	// Lookup with https must still find the http-stored identity
	err, a := db.FindAuthorById("https://example.com/author/abc")
	if err != nil {
		t.Fatalf("FindAuthorById failed: %v", err)
	}
	if a == nil {
		t.Fatal("Expected author for https form of http identity")
	}
}

func TestFindAuthorByIdNotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	err, a := db.FindAuthorById("http://example.com/author/nope/")
	if err != nil {
		t.Fatalf("Expected no error for missing author, got %v", err)
	}
	if a != nil {
		t.Error("Expected nil author for missing id")
	}
}

func TestFindAuthorByUsername(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	createTestAuthor(t, db, "http://example.com/author/abc/", "alice")

	err, a := db.FindAuthorByUsername("alice")
	if err != nil {
		t.Fatalf("FindAuthorByUsername failed: %v", err)
	}
	if a == nil || a.Id != "http://example.com/author/abc/" {
		t.Errorf("Expected stored author, got %v", a)
	}

	err, missing := db.FindAuthorByUsername("bob")
	if err != nil || missing != nil {
		t.Error("Expected (nil, nil) for unknown username")
	}
}

func TestFollowExists(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	follow := &domain.Follow{
		AuthorId: "http://example.com/author/a/",
		FriendId: "http://other.com/author/b/",
	}
	if err := db.CreateFollow(follow); err != nil {
		t.Fatalf("CreateFollow failed: %v", err)
	}

	err, exists := db.FollowExists("http://example.com/author/a/", "http://other.com/author/b/")
	if err != nil {
		t.Fatalf("FollowExists failed: %v", err)
	}
	if !exists {
		t.Error("Expected follow edge to exist")
	}

	// Follow is directed
	err, reverse := db.FollowExists("http://other.com/author/b/", "http://example.com/author/a/")
	if err != nil {
		t.Fatalf("FollowExists failed: %v", err)
	}
	if reverse {
		t.Error("Expected no reverse edge")
	}
}

func TestFollowExistsSchemeVariants(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	follow := &domain.Follow{
		AuthorId: "http://example.com/author/a/",
		FriendId: "https://other.com/author/b/",
	}
	if err := db.CreateFollow(follow); err != nil {
		t.Fatalf("CreateFollow failed: %v", err)
	}

	err, exists := db.FollowExists("https://example.com/author/a", "http://other.com/author/b")
	if err != nil {
		t.Fatalf("FollowExists failed: %v", err)
	}
	if !exists {
		t.Error("Expected follow to match across scheme variants")
	}
}

func TestDeleteFollow(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	follow := &domain.Follow{
		AuthorId: "http://example.com/author/a/",
		FriendId: "http://example.com/author/b/",
	}
	if err := db.CreateFollow(follow); err != nil {
		t.Fatalf("CreateFollow failed: %v", err)
	}

	if err := db.DeleteFollow("http://example.com/author/a/", "http://example.com/author/b/"); err != nil {
		t.Fatalf("DeleteFollow failed: %v", err)
	}

	err, exists := db.FollowExists("http://example.com/author/a/", "http://example.com/author/b/")
	if err != nil {
		t.Fatalf("FollowExists failed: %v", err)
	}
	if exists {
		t.Error("Expected follow edge to be gone")
	}
}

func TestReadFollowsByAuthor(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	for _, friend := range []string{"http://a.com/author/1/", "http://b.com/author/2/"} {
		if err := db.CreateFollow(&domain.Follow{AuthorId: "http://example.com/author/a/", FriendId: friend}); err != nil {
			t.Fatalf("CreateFollow failed: %v", err)
		}
	}

	err, follows := db.ReadFollowsByAuthor("http://example.com/author/a/")
	if err != nil {
		t.Fatalf("ReadFollowsByAuthor failed: %v", err)
	}
	if len(*follows) != 2 {
		t.Errorf("Expected 2 follows, got %d", len(*follows))
	}
}

func TestFriendRequestLifecycle(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	fr := &domain.FriendRequest{
		RequesterId: "http://other.com/author/x/",
		RequesteeId: "http://example.com/author/a/",
	}
	if err := db.CreateFriendRequest(fr); err != nil {
		t.Fatalf("CreateFriendRequest failed: %v", err)
	}

	err, found := db.FindFriendRequest("http://other.com/author/x/", "http://example.com/author/a/")
	if err != nil {
		t.Fatalf("FindFriendRequest failed: %v", err)
	}
	if found == nil {
		t.Fatal("Expected pending request")
	}

	if err := db.DeleteFriendRequest("http://other.com/author/x/", "http://example.com/author/a/"); err != nil {
		t.Fatalf("DeleteFriendRequest failed: %v", err)
	}

	err, gone := db.FindFriendRequest("http://other.com/author/x/", "http://example.com/author/a/")
	if err != nil || gone != nil {
		t.Error("Expected request to be deleted")
	}
}

func TestRecordFriendRequest(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	follow := &domain.Follow{
		AuthorId: "http://other.com/author/x/",
		FriendId: "http://example.com/author/a/",
	}
	fr := &domain.FriendRequest{
		RequesterId: "http://other.com/author/x/",
		RequesteeId: "http://example.com/author/a/",
	}
	if err := db.RecordFriendRequest(follow, fr); err != nil {
		t.Fatalf("RecordFriendRequest failed: %v", err)
	}

	err, exists := db.FollowExists("http://other.com/author/x/", "http://example.com/author/a/")
	if err != nil || !exists {
		t.Error("Expected follow edge after RecordFriendRequest")
	}
	err, pending := db.FindFriendRequest("http://other.com/author/x/", "http://example.com/author/a/")
	if err != nil || pending == nil {
		t.Error("Expected pending request after RecordFriendRequest")
	}
}

func TestRecordFriendRequestRollsBackFollow(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	fr := &domain.FriendRequest{
		RequesterId: "http://other.com/author/x/",
		RequesteeId: "http://example.com/author/a/",
	}
	if err := db.CreateFriendRequest(fr); err != nil {
		t.Fatalf("CreateFriendRequest failed: %v", err)
	}

	// The request insert hits the primary key; the follow insert in the
	// same transaction must roll back with it.
	follow := &domain.Follow{
		AuthorId: "http://other.com/author/x/",
		FriendId: "http://example.com/author/a/",
	}
	if err := db.RecordFriendRequest(follow, fr); err == nil {
		t.Fatal("Expected duplicate request to fail")
	}

	err, exists := db.FollowExists("http://other.com/author/x/", "http://example.com/author/a/")
	if err != nil {
		t.Fatalf("FollowExists failed: %v", err)
	}
	if exists {
		t.Error("Expected no orphan follow edge after failed RecordFriendRequest")
	}
}

func TestDuplicateFriendRequestConflicts(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	fr := &domain.FriendRequest{
		RequesterId: "http://other.com/author/x/",
		RequesteeId: "http://example.com/author/a/",
	}
	if err := db.CreateFriendRequest(fr); err != nil {
		t.Fatalf("CreateFriendRequest failed: %v", err)
	}

	// Same ordered pair again violates the primary key
	if err := db.CreateFriendRequest(fr); err == nil {
		t.Error("Expected duplicate friend request to fail")
	}
}

func TestReadFriendRequestsByRequestee(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	for _, requester := range []string{"http://a.com/author/1/", "http://b.com/author/2/"} {
		fr := &domain.FriendRequest{RequesterId: requester, RequesteeId: "http://example.com/author/a/"}
		if err := db.CreateFriendRequest(fr); err != nil {
			t.Fatalf("CreateFriendRequest failed: %v", err)
		}
	}

	err, requests := db.ReadFriendRequestsByRequestee("http://example.com/author/a/")
	if err != nil {
		t.Fatalf("ReadFriendRequestsByRequestee failed: %v", err)
	}
	if len(*requests) != 2 {
		t.Errorf("Expected 2 pending requests, got %d", len(*requests))
	}
}
