package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handlers "trackify/internal/http/handler"
	"trackify/internal/service"
	"trackify/internal/storage"
)

var fileURLPattern = regexp.MustCompile(`^/static/uploads/[0-9a-f]{32}\.pdf$`)

type testServer struct {
	app       *fiber.App
	root      string
	uploadDir string
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestServer(t *testing.T, bodyLimit int) *testServer {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.html"), "<h1>index</h1>")
	for _, s := range handlers.Sections {
		writeFile(t, filepath.Join(root, s+".html"), "<h1>"+s+"</h1>")
	}
	writeFile(t, filepath.Join(root, "static", "manifest.json"), `{"name":"Trackify"}`)
	writeFile(t, filepath.Join(root, "static", "js", "sw.js"), "self.addEventListener('install', () => {});")
	writeFile(t, filepath.Join(root, "static", "css", "app.css"), "body{}")

	uploadDir := filepath.Join(root, "static", "uploads")
	store, err := storage.NewLocal(uploadDir)
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	app, err := New(Options{
		AppRoot:   root,
		BodyLimit: bodyLimit,
		Registry:  prometheus.NewRegistry(),
	}, service.NewUploadService(store, nil), log)
	require.NoError(t, err)

	return &testServer{app: app, root: root, uploadDir: uploadDir}
}

func (s *testServer) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// listen serves the app on a loopback port. Transport-level rejections such
// as an oversized body only surface as responses over a real connection.
func (s *testServer) listen(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() { _ = s.app.Listener(ln) }()
	t.Cleanup(func() { _ = s.app.Shutdown() })

	return "http://" + ln.Addr().String()
}

func assertCORS(t *testing.T, resp *http.Response) {
	t.Helper()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", resp.Header.Get("Access-Control-Allow-Headers"))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-file", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestPages(t *testing.T) {
	s := newTestServer(t, 0)

	t.Run("index", func(t *testing.T) {
		resp := s.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "<h1>index</h1>", readBody(t, resp))
		assertCORS(t, resp)
	})

	for _, section := range handlers.Sections {
		t.Run(section, func(t *testing.T) {
			resp := s.do(t, httptest.NewRequest(http.MethodGet, "/"+section, nil))
			assert.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, "/"+section+".html", resp.Header.Get("Location"))
			assertCORS(t, resp)

			resp = s.do(t, httptest.NewRequest(http.MethodGet, "/"+section+".html", nil))
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "<h1>"+section+"</h1>", readBody(t, resp))
			assertCORS(t, resp)
		})
	}

	t.Run("manifest", func(t *testing.T) {
		resp := s.do(t, httptest.NewRequest(http.MethodGet, "/manifest.json", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"name":"Trackify"}`, readBody(t, resp))
		assertCORS(t, resp)
	})

	t.Run("service worker", func(t *testing.T) {
		resp := s.do(t, httptest.NewRequest(http.MethodGet, "/sw.js", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "addEventListener")
		assertCORS(t, resp)
	})

	t.Run("static asset", func(t *testing.T) {
		resp := s.do(t, httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "body{}", readBody(t, resp))
		assertCORS(t, resp)
	})

	t.Run("missing page file", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(s.root, "timer.html")))

		resp := s.do(t, httptest.NewRequest(http.MethodGet, "/timer.html", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assertCORS(t, resp)
	})
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 0)

	resp := s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"status":"ok","message":"Server is running"}`, readBody(t, resp))
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	assertCORS(t, resp)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestUploadFile(t *testing.T) {
	s := newTestServer(t, 0)

	t.Run("no file part", func(t *testing.T) {
		body := &bytes.Buffer{}
		w := multipart.NewWriter(body)
		require.NoError(t, w.WriteField("title", "notes"))
		require.NoError(t, w.Close())
		req := httptest.NewRequest(http.MethodPost, "/upload-file", body)
		req.Header.Set("Content-Type", w.FormDataContentType())

		resp := s.do(t, req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error":"No file part"}`, readBody(t, resp))
		assertCORS(t, resp)
	})

	t.Run("no file selected", func(t *testing.T) {
		resp := s.do(t, uploadRequest(t, "", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error":"No file selected"}`, readBody(t, resp))
		assertCORS(t, resp)
	})

	t.Run("type not allowed", func(t *testing.T) {
		resp := s.do(t, uploadRequest(t, "notes.exe", []byte("MZ")))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error":"File type not allowed"}`, readBody(t, resp))
		assertCORS(t, resp)

		entries, err := os.ReadDir(s.uploadDir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("filename is validated as sent", func(t *testing.T) {
		resp := s.do(t, uploadRequest(t, "a.pdf/", []byte("%PDF")))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error":"File type not allowed"}`, readBody(t, resp))
	})

	t.Run("filename with directory echoed as sent", func(t *testing.T) {
		resp := s.do(t, uploadRequest(t, "reports/Q1.pdf", []byte("%PDF")))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var res struct {
			Filename string `json:"filename"`
			FileURL  string `json:"fileUrl"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		assert.Equal(t, "reports/Q1.pdf", res.Filename)
		assert.Regexp(t, fileURLPattern, res.FileURL)

		require.NoError(t, os.Remove(filepath.Join(s.uploadDir, strings.TrimPrefix(res.FileURL, service.PublicPrefix))))
	})

	t.Run("accepted and served back", func(t *testing.T) {
		content := []byte("%PDF-1.4 quarterly report")
		resp := s.do(t, uploadRequest(t, "Report.PDF", content))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assertCORS(t, resp)

		var res struct {
			Message  string `json:"message"`
			Filename string `json:"filename"`
			FileURL  string `json:"fileUrl"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		assert.Equal(t, "File uploaded successfully", res.Message)
		assert.Equal(t, "Report.PDF", res.Filename)
		require.Regexp(t, fileURLPattern, res.FileURL)

		stored := strings.TrimPrefix(res.FileURL, service.PublicPrefix)
		onDisk, err := os.ReadFile(filepath.Join(s.uploadDir, stored))
		require.NoError(t, err)
		assert.Equal(t, content, onDisk)

		resp = s.do(t, httptest.NewRequest(http.MethodGet, res.FileURL, nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, string(content), readBody(t, resp))
		assertCORS(t, resp)
	})

	t.Run("missing upload is 404", func(t *testing.T) {
		resp := s.do(t, httptest.NewRequest(http.MethodGet, "/static/uploads/0123456789abcdef0123456789abcdef.pdf", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assertCORS(t, resp)
	})
}

func TestUploadFile_ConcurrentSameName(t *testing.T) {
	s := newTestServer(t, 0)
	// first request builds the route tree before concurrent use
	s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))

	const n = 8
	reqs := make([]*http.Request, n)
	for i := range reqs {
		reqs[i] = uploadRequest(t, "same.txt", []byte("body"))
	}

	urls := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := s.app.Test(reqs[i], -1)
			if err != nil || resp.StatusCode != http.StatusOK {
				return
			}
			var res struct {
				FileURL string `json:"fileUrl"`
			}
			if json.NewDecoder(resp.Body).Decode(&res) == nil {
				urls[i] = res.FileURL
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, u := range urls {
		require.NotEmpty(t, u)
		assert.False(t, seen[u], "duplicate stored name %s", u)
		seen[u] = true
	}

	entries, err := os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	assert.Len(t, entries, n)
}

func TestBodyLimit(t *testing.T) {
	s := newTestServer(t, 1024)
	base := s.listen(t)

	req := uploadRequest(t, "big.pdf", bytes.Repeat([]byte("a"), 4096))
	req.RequestURI = ""
	req.URL, _ = req.URL.Parse(base + "/upload-file")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Request Entity Too Large"}`, readBody(t, resp))
	assertCORS(t, resp)

	entries, err := os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, 0)

	resp := s.do(t, httptest.NewRequest(http.MethodGet, "/upload-file", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Method Not Allowed"}`, readBody(t, resp))
	assertCORS(t, resp)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, 0)

	resp := s.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Not Found"}`, readBody(t, resp))
	assertCORS(t, resp)
}

func TestPreflight(t *testing.T) {
	s := newTestServer(t, 0)

	req := httptest.NewRequest(http.MethodOptions, "/upload-file", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp := s.do(t, req)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assertCORS(t, resp)

	resp = s.do(t, httptest.NewRequest(http.MethodOptions, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assertCORS(t, resp)
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, 0)

	s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))

	resp := s.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, `http_requests_total{method="GET",path="/health",status="200"} 1`)
	assert.NotContains(t, body, `path="/metrics"`)
}

func TestLedgerRouteDisabled(t *testing.T) {
	s := newTestServer(t, 0)

	resp := s.do(t, httptest.NewRequest(http.MethodGet, "/uploads", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
