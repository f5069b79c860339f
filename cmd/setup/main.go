// Command setup prepares a checkout for serving: it creates the modules
// directory and lists the PDFs the catalog expects to find there.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/keithlinneman/jslearn-web/internal/catalog"
	"github.com/keithlinneman/jslearn-web/internal/cfg"
	"github.com/keithlinneman/jslearn-web/internal/pdfstore"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type setupOpts struct {
	ModulesDir  string
	CatalogFile string
	Strict      bool
}

// run returns the process exit code: 0 on success, 1 when files are
// missing under -strict or setup fails, 2 on bad flags.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o setupOpts
	fs.StringVar(&o.ModulesDir, "modules-dir", "Modules", "directory holding the module PDFs")
	fs.StringVar(&o.CatalogFile, "catalog-file", "", "YAML catalog to check instead of the built-in one")
	fs.BoolVar(&o.Strict, "strict", false, "exit 1 when any catalog PDF is missing")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg.FillFromEnv(fs, cfg.EnvPrefix, func(format string, a ...any) {
		fmt.Fprintf(stderr, format+"\n", a...)
	})

	var reg *catalog.Registry
	var err error
	if o.CatalogFile != "" {
		reg, err = catalog.LoadFile(o.CatalogFile)
	} else {
		reg, err = catalog.Default()
	}
	if err != nil {
		fmt.Fprintln(stderr, "setup: load catalog:", err)
		return 1
	}

	store := pdfstore.NewDiskStore(o.ModulesDir)
	created, err := store.Ensure()
	if err != nil {
		fmt.Fprintln(stderr, "setup:", err)
		return 1
	}
	if created {
		fmt.Fprintf(stdout, "Created modules directory: %s\n", o.ModulesDir)
	} else {
		fmt.Fprintf(stdout, "Modules directory already exists: %s\n", o.ModulesDir)
	}

	mods := reg.List()
	names := make([]string, 0, len(mods))
	for _, m := range mods {
		names = append(names, m.Filename)
	}
	missing, err := pdfstore.Missing(ctx, store, names)
	if err != nil {
		fmt.Fprintln(stderr, "setup: check files:", err)
		return 1
	}
	absent := make(map[string]bool, len(missing))
	for _, n := range missing {
		absent[n] = true
	}

	fmt.Fprintln(stdout, "\nRequired PDF files:")
	for i, n := range names {
		mark := "ok"
		if absent[n] {
			mark = "missing"
		}
		fmt.Fprintf(stdout, "%2d. [%s] %s\n", i+1, mark, n)
	}

	if len(missing) == 0 {
		fmt.Fprintln(stdout, "\nAll module PDFs are present.")
		return 0
	}
	fmt.Fprintf(stdout, "\n%d of %d PDFs missing; copy them into %s before serving downloads.\n", len(missing), len(names), o.ModulesDir)
	if o.Strict {
		return 1
	}
	return 0
}
