package webassets

import (
	"embed"
	"fmt"
	"io/fs"
)

// public/ is served verbatim by the static handler, templates/ is parsed by views
//
//go:embed public templates
var embedded embed.FS

func PublicFS() fs.FS {
	sub, err := fs.Sub(embedded, "public")
	if err != nil {
		panic(fmt.Errorf("webassets: public subfs: %w", err))
	}
	return sub
}

func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(fmt.Errorf("webassets: templates subfs: %w", err))
	}
	return sub
}
