package convert

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testImage(t *testing.T, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestClient(url string) *Client {
	cfg := DefaultConfig()
	cfg.URL = url + "/convert"
	cfg.TimeoutSeconds = 5
	cfg.MaxImageSide = 64
	return NewClient(cfg)
}

func TestConvertSuccess(t *testing.T) {
	var uploaded string
	var uploadSize int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/convert" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Error(err)
			return
		}
		data, _ := ioutil.ReadAll(file)
		uploaded = header.Filename
		uploadSize = len(data)
		w.Header().Set("Content-Type", "model/gltf-binary")
		w.Header().Set("Content-Disposition", `attachment; filename="chair.glb"`)
		w.Write([]byte("glTF-binary"))
	}))
	defer server.Close()

	res, st := newTestClient(server.URL).Convert(context.Background(), "chair.png", testImage(t, 16, 8))
	if st != nil {
		t.Fatal(st)
	}
	if uploaded != "chair.png" || uploadSize == 0 {
		t.Fatal("Wrong upload", uploaded, uploadSize)
	}
	if res.Name != "chair.glb" || res.ContentType != "model/gltf-binary" || string(res.Data) != "glTF-binary" {
		t.Fatal("Wrong result", res.Name, res.ContentType)
	}
}

func TestConvertFallbackName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("glb"))
	}))
	defer server.Close()

	res, st := newTestClient(server.URL).Convert(context.Background(), "my photo.png", testImage(t, 4, 4))
	if st != nil {
		t.Fatal(st)
	}
	if res.Name != "my photo.glb" || res.ContentType != "model/gltf-binary" {
		t.Fatal("Wrong result", res.Name, res.ContentType)
	}
}

func TestConvertDownscalesLargeImages(t *testing.T) {
	var uploaded string
	var size image.Point
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Error(err)
			return
		}
		uploaded = header.Filename
		img, _, err := image.Decode(file)
		if err != nil {
			t.Error(err)
			return
		}
		size = img.Bounds().Size()
		w.Write([]byte("glb"))
	}))
	defer server.Close()

	_, st := newTestClient(server.URL).Convert(context.Background(), "wide.jpg", testImage(t, 256, 128))
	if st != nil {
		t.Fatal(st)
	}
	if uploaded != "wide.png" {
		t.Fatal("Wrong upload name", uploaded)
	}
	if size.X != 64 || size.Y != 32 {
		t.Fatal("Wrong upload size", size)
	}
}

func TestConvertServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Model is not loaded."}`))
	}))
	defer server.Close()

	res, st := newTestClient(server.URL).Convert(context.Background(), "chair.png", testImage(t, 4, 4))
	if st == nil || res != nil {
		t.Fatal("expected a status")
	}
	if st.Code != http.StatusInternalServerError {
		t.Fatal("Wrong code", st.Code)
	}
	if st.Reason() != "Model is not loaded." {
		t.Fatal("Wrong reason", st.Reason())
	}
}

func TestConvertJSONErrorWithSuccessCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(`{"error": "CUDA out of memory"}`))
	}))
	defer server.Close()

	_, st := newTestClient(server.URL).Convert(context.Background(), "chair.png", testImage(t, 4, 4))
	if st == nil {
		t.Fatal("expected a status")
	}
	if st.Code != http.StatusBadGateway || st.Reason() != "CUDA out of memory" {
		t.Fatal("Wrong status", st.Code, st.Reason())
	}
}

func TestConvertIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, st := newTestClient(server.URL).Convert(context.Background(), "chair.png", testImage(t, 4, 4))
	if st == nil || st.Code != http.StatusServiceUnavailable {
		t.Fatal("expected 503 status", st)
	}
	if calls != 1 {
		t.Fatal("request must be sent exactly once, was", calls)
	}
}

func TestConvertRejectsNonImages(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	_, st := newTestClient(server.URL).Convert(context.Background(), "notes.txt", []byte("hello"))
	if st == nil || st.Code != http.StatusBadRequest {
		t.Fatal("expected 400 status", st)
	}
	if calls != 0 {
		t.Fatal("no request expected")
	}
}

func TestConvertUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, st := newTestClient(url).Convert(context.Background(), "chair.png", testImage(t, 4, 4))
	if st == nil || st.Code != http.StatusBadGateway {
		t.Fatal("expected 502 status", st)
	}
}

func TestConvertTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, st := newTestClient(server.URL).Convert(ctx, "chair.png", testImage(t, 4, 4))
	if st == nil || st.Code != http.StatusGatewayTimeout {
		t.Fatal("expected 504 status", st)
	}
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "Backend is running!", "device": "cuda"}`))
	}))
	defer server.Close()

	h, st := newTestClient(server.URL).Health(context.Background())
	if st != nil {
		t.Fatal(st)
	}
	if h.Device != "cuda" || h.Status == "" {
		t.Fatal("Wrong health", h)
	}
}

func TestPrepareImageKeepsSmallImages(t *testing.T) {
	data := testImage(t, 10, 20)
	p, err := PrepareImage(data, 64)
	if err != nil {
		t.Fatal(err)
	}
	if p.Resized || !bytes.Equal(p.Data, data) || p.Format != "png" || p.Width != 10 || p.Height != 20 {
		t.Fatal("small image must be passed on unchanged", p.Width, p.Height)
	}
	p, err = PrepareImage(testImage(t, 300, 600), 0)
	if err != nil || p.Resized {
		t.Fatal("max side 0 must disable resizing")
	}
}

// shortWriter accepts limit bytes and fails afterwards
type shortWriter struct {
	limit int
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if len(p) > w.limit {
		n := w.limit
		w.limit = 0
		return n, errors.New("disk full")
	}
	w.limit -= len(p)
	return len(p), nil
}

func TestWriteFormReportsWriteErrors(t *testing.T) {
	data := testImage(t, 32, 32)

	// fails while writing the file content
	if _, err := writeForm(&shortWriter{limit: 200}, "photo.png", data); err == nil {
		t.Fatal("expected write error")
	}
	// fails while writing the closing boundary
	if _, err := writeForm(&shortWriter{limit: 180 + len(data)}, "photo.png", data); err == nil {
		t.Fatal("expected close error")
	}

	var buf bytes.Buffer
	contentType, err := writeForm(&buf, "photo.png", data)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.Bytes(), data) || contentType == "" {
		t.Fatal("Wrong response", contentType)
	}
}
