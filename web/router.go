package web

import (
	"fmt"
	"log"

	"github.com/distsocial/streamnode/db"
	"github.com/distsocial/streamnode/federation"
	"github.com/distsocial/streamnode/resolve"
	"github.com/distsocial/streamnode/util"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"golang.org/x/time/rate"
)

// Router wires every endpoint. Node-to-node endpoints sit behind the
// registry's inbound Basic auth, viewer endpoints behind local author
// auth; single-post and author reads take an optional viewer identity.
func Router(conf *util.AppConfig, database *db.DB, registry *federation.Registry, resolver *resolve.Resolver) *gin.Engine {
	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	// Global rate limiter: 10 requests per second per IP, burst of 20
	globalLimiter := NewRateLimiter(rate.Limit(10), 20)
	g.Use(RateLimitMiddleware(globalLimiter))

	// Max 1MB request body on writes
	maxBodySize := MaxBytesMiddleware(1 * 1024 * 1024)

	// RSS Feed
	g.GET("/feed", func(c *gin.Context) {
		c.Header("Content-Type", "application/xml; charset=utf-8")
		rss, err := GetRSS(conf, database)
		if err != nil {
			c.Render(404, render.String{Format: ""})
		} else {
			c.Render(200, render.String{Format: rss})
		}
	})

	// Node-to-node API
	node := g.Group("/", NodeAuthMiddleware(registry))
	{
		node.GET("/posts/", func(c *gin.Context) {
			ListPosts(c, conf, database)
		})
		node.GET("/author/:id/friends/", func(c *gin.Context) {
			GetAuthorFriends(c, conf, database)
		})
		node.POST("/friendrequest/", maxBodySize, func(c *gin.Context) {
			SendFriendRequest(c, database)
		})
		node.POST("/posts/:id/comments/", maxBodySize, func(c *gin.Context) {
			AddComment(c, conf, database)
		})
	}

	// Reads with an optional local viewer identity
	read := g.Group("/", ViewerAuthMiddleware(database, false))
	{
		read.GET("/posts/:id", func(c *gin.Context) {
			GetPost(c, conf, database, resolver)
		})
		read.GET("/posts/:id/comments/", func(c *gin.Context) {
			ListComments(c, conf, database)
		})
		read.GET("/author/:id", func(c *gin.Context) {
			GetAuthor(c, conf, database)
		})
		read.GET("/author/:id/posts/", func(c *gin.Context) {
			GetAuthorPosts(c, conf, database)
		})
	}

	// Authenticated local viewer API
	viewer := g.Group("/", ViewerAuthMiddleware(database, true))
	{
		viewer.POST("/posts/:id", maxBodySize, func(c *gin.Context) {
			CreatePost(c, conf, database)
		})
		viewer.PUT("/posts/:id", maxBodySize, func(c *gin.Context) {
			UpdatePost(c, conf, database)
		})
		viewer.DELETE("/posts/:id", func(c *gin.Context) {
			DeletePost(c, conf, database)
		})
		viewer.GET("/stream/", func(c *gin.Context) {
			GetStream(c, conf, resolver)
		})
		viewer.GET("/friendrequests/", func(c *gin.Context) {
			ListFriendRequests(c, database)
		})
		viewer.POST("/friendrequests/accept/", maxBodySize, func(c *gin.Context) {
			AcceptFriendRequest(c, database)
		})
		viewer.POST("/friendrequests/reject/", maxBodySize, func(c *gin.Context) {
			RejectFriendRequest(c, database)
		})
	}

	return g
}

// Serve runs the router until the process is stopped.
func Serve(conf *util.AppConfig, database *db.DB, registry *federation.Registry, resolver *resolve.Resolver) error {
	log.Printf("Starting HTTP server on %s:%d", conf.Conf.Host, conf.Conf.HttpPort)
	g := Router(conf, database, registry, resolver)
	return g.Run(fmt.Sprintf(":%d", conf.Conf.HttpPort))
}
