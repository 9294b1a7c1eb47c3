package documents_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"neurolearn-backend/internal/documents"
)

func newRouter(svc *documents.Service, userID string, guest bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Set("isGuest", guest)
		c.Next()
	})
	api := router.Group("/api/v1")
	documents.NewHandler(svc).RegisterRoutes(api)
	return router
}

func multipartBody(t *testing.T, fileName, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + fileName + `"`}
	header["Content-Type"] = []string{contentType}
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestUploadTextDocument(t *testing.T) {
	svc, _ := newService(t)
	router := newRouter(svc, "user-1", false)

	body, contentType := multipartBody(t, "notes.txt", "text/plain", []byte("The Krebs cycle produces ATP."))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var doc documents.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Kind != documents.KindText || doc.Status != documents.StatusUploaded {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.ID == "" {
		t.Fatal("missing document id")
	}
}

func TestUploadEmptyFileRejected(t *testing.T) {
	svc, _ := newService(t)
	router := newRouter(svc, "user-1", false)

	body, contentType := multipartBody(t, "empty.txt", "text/plain", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestUploadUnsupportedTypeRejected(t *testing.T) {
	svc, _ := newService(t)
	router := newRouter(svc, "user-1", false)

	body, contentType := multipartBody(t, "archive.rar", "application/x-rar", []byte{0x52, 0x61, 0x72, 0x21, 0x00})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestListRequiresLogin(t *testing.T) {
	svc, _ := newService(t)
	router := newRouter(svc, "guest:abc", true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestTextEndpointPending(t *testing.T) {
	svc, repo := newService(t)
	doc := seedTextDocument(t, svc, repo, "user-1", "still extracting")
	router := newRouter(svc, "user-1", false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+doc.ID+"/text", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	svc, _ := newService(t)
	router := newRouter(svc, "user-1", false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/nope", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
