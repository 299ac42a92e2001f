package main

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Skufu/skintriage/internal/config"
	"github.com/Skufu/skintriage/internal/imagestore"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("ENABLE_DB", "false")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_MAPS_API_KEY", "")
	t.Setenv("IMAGE_STORE", "local")
	t.Setenv("UPLOAD_DIR", filepath.Join(t.TempDir(), "uploads"))
	t.Setenv("PUBLIC_BASE_URL", "http://api.test")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected config error: %v", err)
	}
	return cfg
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := rootCmd()
	for _, name := range []string{"serve", "probe", "migrate"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("expected %s subcommand, got %v %v", name, cmd, err)
		}
	}
}

func TestModelCheckRequiresAPIKey(t *testing.T) {
	testConfig(t)
	root := rootCmd()
	root.SetArgs([]string{"probe"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil {
		t.Fatal("expected model check to fail without GEMINI_API_KEY")
	}
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	testConfig(t)
	t.Setenv("DATABASE_URL", "")
	root := rootCmd()
	root.SetArgs([]string{"migrate"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil {
		t.Fatal("expected migrate to fail without DATABASE_URL")
	}
}

func TestBuildImageStoreLocal(t *testing.T) {
	cfg := testConfig(t)

	st, dir, err := buildImageStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := st.(*imagestore.Local); !ok {
		t.Fatalf("expected local store, got %T", st)
	}
	if dir != cfg.UploadDir {
		t.Fatalf("expected served dir %s, got %s", cfg.UploadDir, dir)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("upload dir not created: %v", err)
	}
}

func TestBuildServerWithoutExternalServices(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)

	srv, cleanup, err := buildServer(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()

	if srv.Generator != nil || srv.DB != nil || srv.Hospitals != nil {
		t.Fatalf("expected AI, DB and hospital search disabled, got %+v", srv)
	}

	router := srv.Router()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("image", "Arm Mole.PNG")
	fw.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00"))
	mw.WriteField("symptoms", `{"painLevel": 8}`)
	mw.Close()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/diagnosis/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	out := w.Body.String()
	if !strings.Contains(out, `"aiMode":"mock"`) || !strings.Contains(out, `"severity":"medium"`) {
		t.Fatalf("unexpected body %s", out)
	}
	if !strings.Contains(out, `"imageUrl":"http://api.test/uploads/skin-`) {
		t.Fatalf("expected local image url, got %s", out)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/readyz", nil)
	router.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), `"db":"disabled"`) {
		t.Fatalf("unexpected readyz body %s", w.Body.String())
	}
}
