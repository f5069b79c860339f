package main

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/keithlinneman/jslearn-web/internal/catalog"
	"github.com/keithlinneman/jslearn-web/internal/cfg"
	"github.com/keithlinneman/jslearn-web/internal/log"
	"github.com/keithlinneman/jslearn-web/internal/pdfstore"
)

// newPDFStore builds the store selected by -pdf-store. awsCfg is only used
// for s3 and may be nil otherwise.
func newPDFStore(conf cfg.App, awsCfg *aws.Config) (pdfstore.Store, error) {
	if conf.PDFStore == cfg.PDFStoreS3 {
		return pdfstore.NewS3Store(s3.NewFromConfig(*awsCfg), conf.PDFS3Bucket, conf.PDFS3Prefix)
	}
	return pdfstore.NewDiskStore(conf.ModulesDir), nil
}

// checkPDFs logs one warning per catalog file the disk store cannot find and
// returns how many are missing. S3 is checked lazily on download instead.
func checkPDFs(ctx context.Context, L log.Logger, store pdfstore.Store, reg *catalog.Registry) (int, error) {
	disk, ok := store.(*pdfstore.DiskStore)
	if !ok {
		return 0, nil
	}
	names := make([]string, 0, reg.Len())
	for _, m := range reg.List() {
		names = append(names, m.Filename)
	}
	missing, err := pdfstore.Missing(ctx, disk, names)
	if err != nil {
		return 0, err
	}
	for _, name := range missing {
		L.Warn(ctx, "module pdf missing; downloads for it will 404", "filename", name, "modules_dir", disk.Dir())
	}
	return len(missing), nil
}
