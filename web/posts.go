package web

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/distsocial/streamnode/db"
	"github.com/distsocial/streamnode/domain"
	"github.com/distsocial/streamnode/resolve"
	"github.com/distsocial/streamnode/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// postInput is the writable subset of a post document.
type postInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	ContentType string   `json:"contentType"`
	Visibility  string   `json:"visibility"`
	Unlisted    bool     `json:"unlisted"`
	Categories  []string `json:"categories"`
	VisibleTo   []string `json:"visibleTo"`
}

// postURI reconstructs the full post URI from the path segment, which
// must be a bare UUID (dashed or hex form).
func postURI(conf *util.AppConfig, c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		malformedId(c, "post", id)
		return "", false
	}
	return fmt.Sprintf("%s/posts/%s/", strings.TrimSuffix(conf.Conf.NodeURL, "/"), id), true
}

// postViews joins posts with their author rows, caching lookups.
func postViews(database *db.DB, posts *[]domain.Post) []domain.PostView {
	authors := make(map[string]*domain.Author)
	views := make([]domain.PostView, 0, len(*posts))
	for i := range *posts {
		post := &(*posts)[i]
		author, ok := authors[post.AuthorId]
		if !ok {
			var err error
			if err, author = database.FindAuthorById(post.AuthorId); err != nil {
				log.Printf("author lookup for %s failed: %s", post.AuthorId, err)
			}
			authors[post.AuthorId] = author
		}
		views = append(views, post.View(author))
	}
	return views
}

// ListPosts serves the node-to-node posts listing: every listable post,
// paginated. The consuming node filters per viewer on its side.
func ListPosts(c *gin.Context, conf *util.AppConfig, database *db.DB) {
	page, size, ok := pageParams(c)
	if !ok {
		return
	}

	err, count := database.CountListablePosts()
	if err != nil {
		serverError(c, err)
		return
	}
	err, posts := database.ReadListablePosts(size, (page-1)*size)
	if err != nil {
		serverError(c, err)
		return
	}

	base := fmt.Sprintf("%s/posts/", strings.TrimSuffix(conf.Conf.NodeURL, "/"))
	c.JSON(http.StatusOK, paginate(base, page, size, count, viewsToJSON(postViews(database, posts))))
}

// GetPost serves a single post by direct link. Unlisted posts are
// reachable this way regardless of visibility class; everything else
// goes through the visibility filter for the (possibly anonymous)
// viewer.
func GetPost(c *gin.Context, conf *util.AppConfig, database *db.DB, resolver *resolve.Resolver) {
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

	err, author := database.FindAuthorById(post.AuthorId)
	if err != nil {
		serverError(c, err)
		return
	}
	view := post.View(author)

	if !view.Unlisted && !resolver.Visible(c.Request.Context(), viewerOf(c), view) {
		notFound(c, "post", uri)
		return
	}
	c.JSON(http.StatusOK, viewToJSON(view))
}

// CreatePost creates a post at the given id for the authenticated
// viewer. Creating over an existing id is a conflict.
func CreatePost(c *gin.Context, conf *util.AppConfig, database *db.DB) {
	uri, ok := postURI(conf, c)
	if !ok {
		return
	}

	input, ok := bindPostInput(c)
	if !ok {
		return
	}

	err, existing := database.FindPostById(uri)
	if err != nil {
		serverError(c, err)
		return
	}
	if existing != nil {
		conflict(c, "post", uri)
		return
	}

	post := inputToPost(uri, viewerOf(c), input)
	if err := database.CreatePost(post); err != nil {
		postWriteError(c, err)
		return
	}

	err, author := database.FindAuthorById(post.AuthorId)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewToJSON(post.View(author)))
}

// UpdatePost rewrites an existing post in place.
func UpdatePost(c *gin.Context, conf *util.AppConfig, database *db.DB) {
	uri, ok := postURI(conf, c)
	if !ok {
		return
	}

	err, existing := database.FindPostById(uri)
	if err != nil {
		serverError(c, err)
		return
	}
	if existing == nil {
		notFound(c, "post", uri)
		return
	}
	if !util.SameIdentity(viewerOf(c), existing.AuthorId) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the post author"})
		return
	}

	input, ok := bindPostInput(c)
	if !ok {
		return
	}

	post := inputToPost(uri, existing.AuthorId, input)
	post.Published = existing.Published
	if err := database.UpdatePost(post); err != nil {
		postWriteError(c, err)
		return
	}

	err, author := database.FindAuthorById(post.AuthorId)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewToJSON(post.View(author)))
}

// DeletePost removes a post owned by the authenticated viewer.
func DeletePost(c *gin.Context, conf *util.AppConfig, database *db.DB) {
	uri, ok := postURI(conf, c)
	if !ok {
		return
	}

	err, existing := database.FindPostById(uri)
	if err != nil {
		serverError(c, err)
		return
	}
	if existing == nil {
		notFound(c, "post", uri)
		return
	}
	if !util.SameIdentity(viewerOf(c), existing.AuthorId) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the post author"})
		return
	}

	if err := database.DeletePost(uri); err != nil {
		serverError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func bindPostInput(c *gin.Context) (*postInput, bool) {
	var input postInput
	if err := c.ShouldBindJSON(&input); err != nil {
		malformedBody(c)
		return nil, false
	}

	var missing []string
	if input.Title == "" {
		missing = append(missing, "title")
	}
	if input.Content == "" {
		missing = append(missing, "content")
	}
	if input.Visibility == "" {
		missing = append(missing, "visibility")
	}
	if len(missing) > 0 {
		missingFields(c, missing...)
		return nil, false
	}

	if !domain.ValidVisibility(input.Visibility) {
		invalidField(c, "visibility", input.Visibility)
		return nil, false
	}
	return &input, true
}

func inputToPost(uri, authorId string, input *postInput) *domain.Post {
	contentType := input.ContentType
	if contentType == "" {
		contentType = "text/plain"
	}
	return &domain.Post{
		Id:          uri,
		AuthorId:    authorId,
		Title:       input.Title,
		Description: input.Description,
		Content:     input.Content,
		ContentType: contentType,
		Visibility:  input.Visibility,
		Unlisted:    input.Unlisted,
		Published:   time.Now(),
		Categories:  input.Categories,
		VisibleTo:   input.VisibleTo,
	}
}

func postWriteError(c *gin.Context, err error) {
	if err == domain.ErrVisibleToNotPrivate {
		invalidField(c, "visibleTo", "only PRIVATE posts may set visibleTo")
		return
	}
	if err == domain.ErrBadVisibility {
		invalidField(c, "visibility", "unknown visibility")
		return
	}
	serverError(c, err)
}

func serverError(c *gin.Context, err error) {
	log.Printf("request failed: %s", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	c.Abort()
}
