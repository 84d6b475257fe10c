package web

import (
	"net/http"
	"time"

	"github.com/distsocial/streamnode/db"
	"github.com/distsocial/streamnode/domain"
	"github.com/distsocial/streamnode/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type commentAuthor struct {
	Id          string `json:"id"`
	Host        string `json:"host"`
	DisplayName string `json:"displayName"`
	Github      string `json:"github"`
}

type commentInput struct {
	Query   string `json:"query"`
	Post    string `json:"post"`
	Comment struct {
		Id          string        `json:"id"`
		Author      commentAuthor `json:"author"`
		Comment     string        `json:"comment"`
		ContentType string        `json:"contentType"`
		Published   string        `json:"published"`
	} `json:"comment"`
}

// AddComment attaches a comment to a local post. Remote comment authors
// are cached opportunistically so their last-known name survives even
// when their node is unreachable later.
func AddComment(c *gin.Context, conf *util.AppConfig, database *db.DB) {
	uri, ok := postURI(conf, c)
	if !ok {
		return
	}

	var input commentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		malformedBody(c)
		return
	}

	var missing []string
	if input.Comment.Comment == "" {
		missing = append(missing, "comment.comment")
	}
	if input.Comment.Author.Id == "" {
		missing = append(missing, "comment.author.id")
	}
	if len(missing) > 0 {
		missingFields(c, missing...)
		return
	}

	err, post := database.FindPostById(uri)
	if err != nil {
		serverError(c, err)
		return
	}
	if post == nil {
		notFound(c, "post", uri)
		return
	}

	comment := &domain.Comment{
		PostId:      uri,
		AuthorId:    util.NormalizeURI(input.Comment.Author.Id),
		Comment:     input.Comment.Comment,
		ContentType: input.Comment.ContentType,
	}
	if input.Comment.Id != "" {
		id, err := uuid.Parse(input.Comment.Id)
		if err != nil {
			malformedId(c, "comment", input.Comment.Id)
			return
		}
		comment.Id = id
	}
	if input.Comment.Published != "" {
		if ts, err := time.Parse(time.RFC3339, input.Comment.Published); err == nil {
			comment.Published = ts
		}
	}

	if err := database.CreateComment(comment); err != nil {
		serverError(c, err)
		return
	}

	err, local := database.FindAuthorById(comment.AuthorId)
	if err == nil && local == nil {
		cache := &domain.RemoteCommentAuthor{
			AuthorId:    comment.AuthorId,
			Host:        input.Comment.Author.Host,
			DisplayName: input.Comment.Author.DisplayName,
			Github:      input.Comment.Author.Github,
		}
		if err := database.UpsertRemoteCommentAuthor(cache); err != nil {
			serverError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"query": "addComment", "success": true, "message": "Comment Added"})
}

// ListComments serves a post's comments oldest-first, resolving each
// author against the local table and the remote-author cache.
func ListComments(c *gin.Context, conf *util.AppConfig, database *db.DB) {
	uri, ok := postURI(conf, c)
	if !ok {
		return
	}

	err, post := database.FindPostById(uri)
	if err != nil {
		serverError(c, err)
		return
	}
	if post == nil {
		notFound(c, "post", uri)
		return
	}

	err, comments := database.ReadCommentsByPost(uri)
	if err != nil {
		serverError(c, err)
		return
	}

	docs := make([]commentJSON, 0, len(*comments))
	for _, comment := range *comments {
		docs = append(docs, commentJSON{
			Id:          comment.Id.String(),
			Author:      commentAuthorDoc(database, comment.AuthorId),
			Comment:     comment.Comment,
			ContentType: comment.ContentType,
			Published:   comment.Published.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"query": "comments", "count": len(docs), "comments": docs})
}

func commentAuthorDoc(database *db.DB, authorId string) authorJSON {
	doc := authorJSON{Id: authorId, URL: authorId, Host: util.HostOf(authorId)}

	if err, local := database.FindAuthorById(authorId); err == nil && local != nil {
		doc.Host = local.Host
		doc.DisplayName = local.DisplayName
		return doc
	}
	if err, cached := database.FindRemoteCommentAuthor(authorId); err == nil && cached != nil {
		if cached.Host != "" {
			doc.Host = cached.Host
		}
		doc.DisplayName = cached.DisplayName
	}
	return doc
}
