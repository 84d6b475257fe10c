package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/distsocial/streamnode/resolve"
	"github.com/distsocial/streamnode/util"
	"github.com/gin-gonic/gin"
)

// GetStream serves the assembled cross-node stream for the
// authenticated viewer. Assembly happens fresh per request; pagination
// slices the assembled list.
func GetStream(c *gin.Context, conf *util.AppConfig, resolver *resolve.Resolver) {
	page, size, ok := pageParams(c)
	if !ok {
		return
	}

	stream := resolver.BuildStream(c.Request.Context(), viewerOf(c))
	count := len(stream)

	start := (page - 1) * size
	if start > count {
		start = count
	}
	end := start + size
	if end > count {
		end = count
	}

	base := fmt.Sprintf("%s/stream/", strings.TrimSuffix(conf.Conf.NodeURL, "/"))
	c.JSON(http.StatusOK, paginate(base, page, size, count, viewsToJSON(stream[start:end])))
}
