package web

import (
	"net/http"

	"github.com/distsocial/streamnode/db"
	"github.com/distsocial/streamnode/domain"
	"github.com/distsocial/streamnode/util"
	"github.com/gin-gonic/gin"
)

type friendRequestParty struct {
	Id          string `json:"id"`
	Host        string `json:"host"`
	DisplayName string `json:"displayName"`
}

type friendRequestInput struct {
	Query  string             `json:"query"`
	Author friendRequestParty `json:"author"`
	Friend friendRequestParty `json:"friend"`
}

// SendFriendRequest handles an inbound friend request: author (the
// requester, possibly remote) wants to befriend friend (a local
// author). The requester's follow edge is recorded immediately; the
// friendship waits for an accept.
func SendFriendRequest(c *gin.Context, database *db.DB) {
	var input friendRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		malformedBody(c)
		return
	}

	var missing []string
	if input.Author.Id == "" {
		missing = append(missing, "author.id")
	}
	if input.Friend.Id == "" {
		missing = append(missing, "friend.id")
	}
	if len(missing) > 0 {
		missingFields(c, missing...)
		return
	}

	if util.SameIdentity(input.Author.Id, input.Friend.Id) {
		invalidField(c, "friend", "cannot befriend yourself")
		return
	}

	err, requestee := database.FindAuthorById(input.Friend.Id)
	if err != nil {
		serverError(c, err)
		return
	}
	if requestee == nil {
		notFound(c, "friend", input.Friend.Id)
		return
	}

	err, pending := database.FindFriendRequest(input.Author.Id, input.Friend.Id)
	if err != nil {
		serverError(c, err)
		return
	}
	if pending != nil {
		conflict(c, "friendrequest", input.Author.Id)
		return
	}

	err, followed := database.FollowExists(input.Author.Id, input.Friend.Id)
	if err != nil {
		serverError(c, err)
		return
	}
	if followed {
		conflict(c, "follow", input.Author.Id)
		return
	}

	follow := &domain.Follow{
		AuthorId:    input.Author.Id,
		FriendId:    input.Friend.Id,
		DisplayName: input.Author.DisplayName,
	}
	request := &domain.FriendRequest{
		RequesterId: input.Author.Id,
		RequesteeId: input.Friend.Id,
	}
	if err := database.RecordFriendRequest(follow, request); err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"query": "friendrequest", "success": true})
}

// ListFriendRequests serves the pending requests of the authenticated
// viewer.
func ListFriendRequests(c *gin.Context, database *db.DB) {
	err, requests := database.ReadFriendRequestsByRequestee(viewerOf(c))
	if err != nil {
		serverError(c, err)
		return
	}

	requesters := make([]string, 0, len(*requests))
	for _, fr := range *requests {
		requesters = append(requesters, fr.RequesterId)
	}
	c.JSON(http.StatusOK, gin.H{"query": "friendrequests", "authors": requesters})
}

type friendRequestDecision struct {
	Requester string `json:"requester"`
}

// AcceptFriendRequest turns a pending request into a friendship: the
// missing reciprocal follow edge is created and the request row goes
// away. Crossed requests leave the reciprocal edge already in place, so
// an existing edge counts as satisfied.
func AcceptFriendRequest(c *gin.Context, database *db.DB) {
	requester, viewer, ok := bindDecision(c, database)
	if !ok {
		return
	}

	err, followed := database.FollowExists(viewer, requester)
	if err != nil {
		serverError(c, err)
		return
	}
	if !followed {
		follow := &domain.Follow{AuthorId: viewer, FriendId: requester}
		if err := database.CreateFollow(follow); err != nil {
			serverError(c, err)
			return
		}
	}
	if err := database.DeleteFriendRequest(requester, viewer); err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": "friendrequest", "accepted": true})
}

// RejectFriendRequest drops a pending request. The requester's follow
// edge stays; rejecting is one-way.
func RejectFriendRequest(c *gin.Context, database *db.DB) {
	requester, viewer, ok := bindDecision(c, database)
	if !ok {
		return
	}

	if err := database.DeleteFriendRequest(requester, viewer); err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": "friendrequest", "accepted": false})
}

func bindDecision(c *gin.Context, database *db.DB) (string, string, bool) {
	var input friendRequestDecision
	if err := c.ShouldBindJSON(&input); err != nil {
		malformedBody(c)
		return "", "", false
	}
	if input.Requester == "" {
		missingFields(c, "requester")
		return "", "", false
	}

	viewer := viewerOf(c)
	err, pending := database.FindFriendRequest(input.Requester, viewer)
	if err != nil {
		serverError(c, err)
		return "", "", false
	}
	if pending == nil {
		notFound(c, "friendrequest", input.Requester)
		return "", "", false
	}
	return input.Requester, viewer, true
}
