package main

import (
	"context"
	"errors"

	"github.com/keithlinneman/jslearn-web/internal/catalog"
	"github.com/keithlinneman/jslearn-web/internal/paramstore"
	"github.com/keithlinneman/jslearn-web/internal/xerrors"
)

// loadCatalog returns the embedded catalog, or the file at path when set.
func loadCatalog(path string) (*catalog.Registry, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

// paramGetter is satisfied by *paramstore.Reader.
type paramGetter interface {
	Get(ctx context.Context, name string) (string, error)
}

// applyDemoOverride replaces the catalog's demo set from a literal id list or,
// failing that, from an SSM parameter. A missing parameter keeps the catalog
// defaults; any other failure is returned.
func applyDemoOverride(ctx context.Context, reg *catalog.Registry, ids string, params paramGetter, param string) (*catalog.Registry, string, error) {
	source := "catalog"
	switch {
	case ids != "":
		source = "flag"
	case param != "" && params != nil:
		v, err := params.Get(ctx, param)
		if errors.Is(err, paramstore.ErrNotFound) {
			return reg, source, nil
		}
		if err != nil {
			return nil, "", xerrors.Wrapf(err, "read demo ids from %s", param)
		}
		ids, source = v, "ssm"
	default:
		return reg, source, nil
	}

	parsed, err := catalog.ParseIDs(ids)
	if err != nil {
		return nil, "", xerrors.Wrapf(err, "demo ids from %s", source)
	}
	out, err := reg.WithDemoIDs(parsed)
	if err != nil {
		return nil, "", err
	}
	return out, source, nil
}
