package web

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/distsocial/streamnode/db"
	"github.com/distsocial/streamnode/util"
	"github.com/gorilla/feeds"
)

// GetRSS renders the node's public listed posts as an RSS feed.
func GetRSS(conf *util.AppConfig, database *db.DB) (string, error) {
	err, posts := database.ReadPublicPosts(maxPageSize, 0)
	if err != nil || posts == nil {
		log.Println("Could not get posts!", err)
		return "", errors.New("error retrieving public posts")
	}

	base := strings.TrimSuffix(conf.Conf.NodeURL, "/")
	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s - public posts", util.Name),
		Link:        &feeds.Link{Href: base + "/feed"},
		Description: fmt.Sprintf("public posts on %s", base),
		Created:     time.Now(),
	}

	var feedItems []*feeds.Item
	for _, view := range postViews(database, posts) {
		name := view.AuthorName
		if name == "" {
			name = view.AuthorId
		}
		feedItems = append(feedItems,
			&feeds.Item{
				Id:      view.Id,
				Title:   view.Title,
				Link:    &feeds.Link{Href: view.Id},
				Content: view.Content,
				Author:  &feeds.Author{Name: name},
				Created: view.Published,
			})
	}

	feed.Items = feedItems
	return feed.ToRss()
}
