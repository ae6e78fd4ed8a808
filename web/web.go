// Package web embeds the agent-facing frontend.
package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static
var assets embed.FS

// Static is the asset tree rooted at static/.
func Static() http.FileSystem {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// Index serves the single page.
func Index(c *gin.Context) {
	page, err := assets.ReadFile("static/index.html")
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// Register mounts the page at / and its assets under /static.
func Register(r gin.IRoutes) {
	r.GET("/", Index)
	r.StaticFS("/static", Static())
}
