package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/distsocial/streamnode/db"
	"github.com/distsocial/streamnode/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type authorProfile struct {
	Id          string `json:"id"`
	Host        string `json:"host"`
	DisplayName string `json:"displayName"`
	Github      string `json:"github,omitempty"`
	Bio         string `json:"bio,omitempty"`
	URL         string `json:"url"`
}

type friendsList struct {
	Query   string   `json:"query"`
	Author  string   `json:"author"`
	Authors []string `json:"authors"`
}

func authorURI(conf *util.AppConfig, c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		malformedId(c, "author", id)
		return "", false
	}
	return fmt.Sprintf("%s/author/%s/", strings.TrimSuffix(conf.Conf.NodeURL, "/"), id), true
}

// GetAuthor serves a local author's profile document.
func GetAuthor(c *gin.Context, conf *util.AppConfig, database *db.DB) {
	uri, ok := authorURI(conf, c)
	if !ok {
		return
	}

	err, author := database.FindAuthorById(uri)
	if err != nil {
		serverError(c, err)
		return
	}
	if author == nil {
		notFound(c, "author", uri)
		return
	}

	c.JSON(http.StatusOK, authorProfile{
		Id:          author.Id,
		Host:        author.Host,
		DisplayName: author.DisplayName,
		Github:      author.Github,
		Bio:         author.Bio,
		URL:         author.Id,
	})
}

// GetAuthorFriends serves the authors this author follows. Peers test
// membership in this list to establish a back-follow; serving the raw
// follow list instead of the computed mutual set keeps two nodes from
// recursively querying each other.
func GetAuthorFriends(c *gin.Context, conf *util.AppConfig, database *db.DB) {
	uri, ok := authorURI(conf, c)
	if !ok {
		return
	}

	err, author := database.FindAuthorById(uri)
	if err != nil {
		serverError(c, err)
		return
	}
	if author == nil {
		notFound(c, "author", uri)
		return
	}

	err, follows := database.ReadFollowsByAuthor(uri)
	if err != nil {
		serverError(c, err)
		return
	}
	authors := make([]string, 0, len(*follows))
	for _, f := range *follows {
		authors = append(authors, f.FriendId)
	}
	c.JSON(http.StatusOK, friendsList{
		Query:   "friends",
		Author:  author.Id,
		Authors: authors,
	})
}

// GetAuthorPosts serves one author's listable posts, paginated.
func GetAuthorPosts(c *gin.Context, conf *util.AppConfig, database *db.DB) {
	uri, ok := authorURI(conf, c)
	if !ok {
		return
	}

	err, author := database.FindAuthorById(uri)
	if err != nil {
		serverError(c, err)
		return
	}
	if author == nil {
		notFound(c, "author", uri)
		return
	}

	page, size, ok := pageParams(c)
	if !ok {
		return
	}

	err, count := database.CountPostsByAuthor(uri)
	if err != nil {
		serverError(c, err)
		return
	}
	err, posts := database.ReadPostsByAuthor(uri, size, (page-1)*size)
	if err != nil {
		serverError(c, err)
		return
	}

	base := fmt.Sprintf("%s/author/%s/posts/", strings.TrimSuffix(conf.Conf.NodeURL, "/"), c.Param("id"))
	c.JSON(http.StatusOK, paginate(base, page, size, count, viewsToJSON(postViews(database, posts))))
}
