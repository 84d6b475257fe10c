package web

import (
	"fmt"
	"net/http"
	"testing"
)

func friendRequestBody(requester, requestee string) string {
	return fmt.Sprintf(`{
		"query": "friendrequest",
		"author": {"id": "%s", "host": "http://peer.example.com", "displayName": "Remy"},
		"friend": {"id": "%s", "host": "http://local.example.com", "displayName": "Alice"}
	}`, requester, requestee)
}

func TestSendFriendRequest(t *testing.T) {
	router, database, conf := testApp(t)
	defer database.Close()

	alice := newTestAuthor(t, database, conf, "alice", "pw")
	requester := "http://peer.example.com/author/remy/"

	w := doRequest(router, "POST", "/friendrequest/", friendRequestBody(requester, alice.Id), "peer", "peerpass")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// Requester's follow edge exists immediately
	err, followed := database.FollowExists(requester, alice.Id)
	if err != nil || !followed {
		t.Error("Expected requester's follow edge after send")
	}
	err, pending := database.FindFriendRequest(requester, alice.Id)
	if err != nil || pending == nil {
		t.Error("Expected pending friend request after send")
	}
}

func TestSendFriendRequestDuplicateConflict(t *testing.T) {
	router, database, conf := testApp(t)
	defer database.Close()

	alice := newTestAuthor(t, database, conf, "alice", "pw")
	requester := "http://peer.example.com/author/remy/"
	body := friendRequestBody(requester, alice.Id)

	if w := doRequest(router, "POST", "/friendrequest/", body, "peer", "peerpass"); w.Code != http.StatusCreated {
		t.Fatalf("First request failed: %d", w.Code)
	}
	if w := doRequest(router, "POST", "/friendrequest/", body, "peer", "peerpass"); w.Code != http.StatusConflict {
		t.Errorf("Expected 409 on duplicate request, got %d", w.Code)
	}

	// Still exactly one pending request
	err, requests := database.ReadFriendRequestsByRequestee(alice.Id)
	if err != nil {
		t.Fatalf("ReadFriendRequestsByRequestee failed: %v", err)
	}
	if len(*requests) != 1 {
		t.Errorf("Expected 1 pending request, got %d", len(*requests))
	}
}

func TestSendFriendRequestSelf(t *testing.T) {
	router, database, conf := testApp(t)
	defer database.Close()

	alice := newTestAuthor(t, database, conf, "alice", "pw")
	w := doRequest(router, "POST", "/friendrequest/", friendRequestBody(alice.Id, alice.Id), "peer", "peerpass")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 on self request, got %d", w.Code)
	}

	err, requests := database.ReadFriendRequestsByRequestee(alice.Id)
	if err != nil || len(*requests) != 0 {
		t.Error("Expected no state created by a self request")
	}
}

func TestSendFriendRequestUnknownRequestee(t *testing.T) {
	router, database, _ := testApp(t)
	defer database.Close()

	body := friendRequestBody("http://peer.example.com/author/remy/", "http://local.example.com/author/nobody/")
	if w := doRequest(router, "POST", "/friendrequest/", body, "peer", "peerpass"); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown requestee, got %d", w.Code)
	}
}

func TestSendFriendRequestMissingFields(t *testing.T) {
	router, database, _ := testApp(t)
	defer database.Close()

	w := doRequest(router, "POST", "/friendrequest/", `{"query":"friendrequest"}`, "peer", "peerpass")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d", w.Code)
	}
	required := decodeBody(t, w)["required"].([]interface{})
	if len(required) != 2 {
		t.Errorf("Expected author.id and friend.id required, got %v", required)
	}
}

func TestAcceptFriendRequestMakesFriends(t *testing.T) {
	router, database, conf := testApp(t)
	defer database.Close()

	alice := newTestAuthor(t, database, conf, "alice", "pw")
	bob := newTestAuthor(t, database, conf, "bob", "pw")

	w := doRequest(router, "POST", "/friendrequest/", friendRequestBody(bob.Id, alice.Id), "peer", "peerpass")
	if w.Code != http.StatusCreated {
		t.Fatalf("Send failed: %d", w.Code)
	}

	accept := fmt.Sprintf(`{"requester": "%s"}`, bob.Id)
	w = doRequest(router, "POST", "/friendrequests/accept/", accept, "alice", "pw")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on accept, got %d: %s", w.Code, w.Body.String())
	}

	// Both edges present, request gone
	err, forward := database.FollowExists(bob.Id, alice.Id)
	if err != nil || !forward {
		t.Error("Expected requester's edge to survive accept")
	}
	err, backward := database.FollowExists(alice.Id, bob.Id)
	if err != nil || !backward {
		t.Error("Expected reciprocal edge after accept")
	}
	err, pending := database.FindFriendRequest(bob.Id, alice.Id)
	if err != nil || pending != nil {
		t.Error("Expected request row deleted after accept")
	}

	// A second accept is a 404, the request is spent
	if w := doRequest(router, "POST", "/friendrequests/accept/", accept, "alice", "pw"); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on spent request, got %d", w.Code)
	}
}

func TestAcceptCrossedFriendRequests(t *testing.T) {
	router, database, conf := testApp(t)
	defer database.Close()

	alice := newTestAuthor(t, database, conf, "alice", "pw")
	bob := newTestAuthor(t, database, conf, "bob", "pw")

	// Both send before either accepts: both edges and both pending rows
	// exist, so the accept's reciprocal edge is already in place.
	if w := doRequest(router, "POST", "/friendrequest/", friendRequestBody(bob.Id, alice.Id), "peer", "peerpass"); w.Code != http.StatusCreated {
		t.Fatalf("First send failed: %d", w.Code)
	}
	if w := doRequest(router, "POST", "/friendrequest/", friendRequestBody(alice.Id, bob.Id), "peer", "peerpass"); w.Code != http.StatusCreated {
		t.Fatalf("Crossed send failed: %d", w.Code)
	}

	accept := fmt.Sprintf(`{"requester": "%s"}`, bob.Id)
	w := doRequest(router, "POST", "/friendrequests/accept/", accept, "alice", "pw")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 accepting a crossed request, got %d: %s", w.Code, w.Body.String())
	}

	err, pending := database.FindFriendRequest(bob.Id, alice.Id)
	if err != nil || pending != nil {
		t.Error("Expected accepted request row deleted")
	}
	// Bob's own outbound request is untouched
	err, other := database.FindFriendRequest(alice.Id, bob.Id)
	if err != nil || other == nil {
		t.Error("Expected the crossed request to stay pending")
	}
	err, forward := database.FollowExists(bob.Id, alice.Id)
	if err != nil || !forward {
		t.Error("Expected requester's edge after accept")
	}
	err, backward := database.FollowExists(alice.Id, bob.Id)
	if err != nil || !backward {
		t.Error("Expected reciprocal edge after accept")
	}
}

func TestRejectFriendRequestKeepsRequesterEdge(t *testing.T) {
	router, database, conf := testApp(t)
	defer database.Close()

	alice := newTestAuthor(t, database, conf, "alice", "pw")
	bob := newTestAuthor(t, database, conf, "bob", "pw")

	if w := doRequest(router, "POST", "/friendrequest/", friendRequestBody(bob.Id, alice.Id), "peer", "peerpass"); w.Code != http.StatusCreated {
		t.Fatalf("Send failed: %d", w.Code)
	}

	reject := fmt.Sprintf(`{"requester": "%s"}`, bob.Id)
	if w := doRequest(router, "POST", "/friendrequests/reject/", reject, "alice", "pw"); w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on reject, got %d", w.Code)
	}

	err, pending := database.FindFriendRequest(bob.Id, alice.Id)
	if err != nil || pending != nil {
		t.Error("Expected request row deleted after reject")
	}
	// One-way un-friend: the requester's follow edge stays
	err, forward := database.FollowExists(bob.Id, alice.Id)
	if err != nil || !forward {
		t.Error("Expected requester's edge untouched by reject")
	}
	err, backward := database.FollowExists(alice.Id, bob.Id)
	if err != nil || backward {
		t.Error("Expected no reciprocal edge after reject")
	}
}

func TestListFriendRequests(t *testing.T) {
	router, database, conf := testApp(t)
	defer database.Close()

	alice := newTestAuthor(t, database, conf, "alice", "pw")
	requester := "http://peer.example.com/author/remy/"
	if w := doRequest(router, "POST", "/friendrequest/", friendRequestBody(requester, alice.Id), "peer", "peerpass"); w.Code != http.StatusCreated {
		t.Fatalf("Send failed: %d", w.Code)
	}

	w := doRequest(router, "GET", "/friendrequests/", "", "alice", "pw")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	authors := decodeBody(t, w)["authors"].([]interface{})
	if len(authors) != 1 {
		t.Fatalf("Expected 1 pending request, got %d", len(authors))
	}
}
