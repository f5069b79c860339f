package sitehandler

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/keithlinneman/jslearn-web/internal/log"
)

var ErrInvalidOptions = errors.New("sitehandler: invalid options")

type Options struct {
	Logger log.Logger
	// Public assets (css, js, images) and the 404 page
	PublicFS fs.FS

	NotFoundFile string // default: "404.html"

	// Cache policies applied by file extension. Embedded assets are not
	// fingerprinted, so they get a bounded max-age rather than immutable.
	HTMLCacheControl  string // default: "no-cache"
	AssetCacheControl string // default: "public, max-age=86400"
	OtherCacheControl string // default: "public, max-age=3600"
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.NotFoundFile == "" {
		o.NotFoundFile = "404.html"
	}
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=86400"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "public, max-age=3600"
	}
}

func (o *Options) validate() error {
	if o.PublicFS == nil {
		return fmt.Errorf("%w: PublicFS is nil", ErrInvalidOptions)
	}
	// fail fast on boot if mispackaged
	if !existsFile(o.PublicFS, o.NotFoundFile) {
		return fmt.Errorf("%w: missing %q in public FS", ErrInvalidOptions, o.NotFoundFile)
	}
	return nil
}
