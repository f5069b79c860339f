package sitehandler

import (
	"path"
	"strings"
)

func cacheControlForFile(name string, o *Options) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".html", "":
		return o.HTMLCacheControl
	case ".css", ".js", ".mjs",
		".png", ".jpg", ".jpeg", ".webp", ".gif", ".svg", ".ico",
		".woff", ".woff2", ".ttf",
		".map":
		return o.AssetCacheControl
	default:
		return o.OtherCacheControl
	}
}
