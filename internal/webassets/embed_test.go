package webassets

import (
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// PublicFS
// ---------------------------------------------------------------------------

func TestPublicFS_HasAssets(t *testing.T) {
	fsys := PublicFS()

	for _, name := range []string{"css/style.css", "js/main.js", "images/favicon.svg", "404.html"} {
		info, err := fs.Stat(fsys, name)
		if err != nil {
			t.Fatalf("%s not found: %v", name, err)
		}
		if info.IsDir() || info.Size() == 0 {
			t.Fatalf("%s is a directory or empty", name)
		}
	}
}

func TestPublicFS_DoesNotExposeTemplates(t *testing.T) {
	if _, err := fs.Stat(PublicFS(), "layout.html"); err == nil {
		t.Fatal("templates must not be reachable through the public FS")
	}
	if _, err := fs.Stat(PublicFS(), "../templates/layout.html"); err == nil {
		t.Fatal("parent traversal should not resolve")
	}
}

func TestPublicFS_MainJSUsesAPI(t *testing.T) {
	data, err := fs.ReadFile(PublicFS(), "js/main.js")
	if err != nil {
		t.Fatalf("read main.js: %v", err)
	}
	if !strings.Contains(string(data), "/api/modules") {
		t.Fatal("main.js should reference the modules API")
	}
}

// ---------------------------------------------------------------------------
// TemplatesFS
// ---------------------------------------------------------------------------

func TestTemplatesFS_HasPages(t *testing.T) {
	fsys := TemplatesFS()

	names := []string{"layout.html", "index.html", "module.html", "error.html"}
	for id := 1; id <= 9; id++ {
		names = append(names, fmt.Sprintf("demo-module-%d.html", id))
	}
	for _, name := range names {
		if _, err := fs.Stat(fsys, name); err != nil {
			t.Fatalf("%s not found: %v", name, err)
		}
	}
}

func TestTemplatesFS_NoDemoForFinalProject(t *testing.T) {
	if _, err := fs.Stat(TemplatesFS(), "demo-module-10.html"); err == nil {
		t.Fatal("demo-module-10.html should not exist")
	}
}
