package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragindex/internal/domain"
	"ragindex/internal/ranker"
	"ragindex/internal/service"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeService struct {
	ingested []string
	ingestN  int
	err      error
	records  []domain.Record
	resets   int
}

func (f *fakeService) Ingest(_ context.Context, doc string) (int, error) {
	f.ingested = append(f.ingested, doc)
	return f.ingestN, f.err
}

func (f *fakeService) Ask(_ context.Context, msg string) (service.Answer, error) {
	if msg == "" {
		return service.Answer{}, domain.ErrEmptyMessage
	}
	if f.err != nil {
		return service.Answer{}, f.err
	}
	return service.Answer{
		Context:  "Similar documents: dogs are loyal pets",
		Passages: []ranker.Scored{{Text: "dogs are loyal pets", Score: 0.9}},
		Response: "Dogs.",
	}, nil
}

func (f *fakeService) Chat(_ context.Context, msg string) (string, error) {
	if msg == "" {
		return "", domain.ErrEmptyMessage
	}
	return "echo: " + msg, f.err
}

func (f *fakeService) Inspect(context.Context) ([]domain.Record, error) { return f.records, f.err }

func (f *fakeService) Reset(context.Context) error {
	f.resets++
	return f.err
}

func do(t *testing.T, r http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, contentType, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="document"; filename=%q`, filename))
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/embed", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	w, _ := do(t, NewRouter(&fakeService{}, 1<<20), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestChat(t *testing.T) {
	r := NewRouter(&fakeService{}, 1<<20)

	w, body := do(t, r, jsonRequest(http.MethodPost, "/chat", `{"message":"hi"}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "echo: hi", body["ai"])

	w, body = do(t, r, jsonRequest(http.MethodPost, "/chat", `{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "message is required", body["error"])

	w, _ = do(t, r, jsonRequest(http.MethodPost, "/chat", `{not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatTrained(t *testing.T) {
	w, body := do(t, NewRouter(&fakeService{}, 1<<20), jsonRequest(http.MethodPost, "/chat-trained", `{"message":"pets?"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Dogs.", body["response"])
	assert.Equal(t, "Similar documents: dogs are loyal pets", body["context"])
	passages := body["passages"].([]any)
	require.Len(t, passages, 1)
	assert.Equal(t, "dogs are loyal pets", passages[0].(map[string]any)["text"])
}

func TestChatTrained_RetrievalFailureIs500(t *testing.T) {
	svc := &fakeService{err: &domain.RetrievalError{Op: "embed query", Err: errors.New("oracle down")}}
	w, body := do(t, NewRouter(svc, 1<<20), jsonRequest(http.MethodPost, "/chat-trained", `{"message":"pets?"}`))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, body["error"], "oracle down")
}

func TestEmbed_PlainText(t *testing.T) {
	svc := &fakeService{ingestN: 2}
	w, body := do(t, NewRouter(svc, 1<<20), uploadRequest(t, "text/plain", "a.txt", []byte("A cat sat.\nA dog ran.")))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["chunks"])
	assert.Equal(t, []string{"A cat sat.\nA dog ran."}, svc.ingested)
}

func TestEmbed_RejectsUnsupportedType(t *testing.T) {
	svc := &fakeService{}
	w, body := do(t, NewRouter(svc, 1<<20), uploadRequest(t, "image/png", "a.png", []byte{0x89, 'P', 'N', 'G'}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "unsupported file type")
	assert.Empty(t, svc.ingested)
}

func TestEmbed_MissingFile(t *testing.T) {
	w, body := do(t, NewRouter(&fakeService{}, 1<<20), jsonRequest(http.MethodPost, "/embed", `{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no file uploaded", body["error"])
}

func TestEmbed_IngestFailureIs500(t *testing.T) {
	svc := &fakeService{ingestN: 1, err: &domain.IngestError{Total: 2, Failed: 1, Err: errors.New("boom")}}
	w, body := do(t, NewRouter(svc, 1<<20), uploadRequest(t, "text/plain", "a.txt", []byte("text")))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, body["error"], "1 of 2 chunks failed")
}

func TestVisualizeDB(t *testing.T) {
	svc := &fakeService{records: []domain.Record{{ID: "id-1", Vector: []float64{3, 4}, Norm: 5, Metadata: domain.Metadata{Text: "t"}}}}
	w, body := do(t, NewRouter(svc, 1<<20), httptest.NewRequest(http.MethodGet, "/visualize-db", nil))
	require.Equal(t, http.StatusOK, w.Code)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "id-1", item["id"])
	assert.Equal(t, float64(5), item["norm"])
	assert.Equal(t, "t", item["metadata"].(map[string]any)["text"])
}

func TestResetDB(t *testing.T) {
	svc := &fakeService{}
	w, body := do(t, NewRouter(svc, 1<<20), httptest.NewRequest(http.MethodDelete, "/reset-db", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "database reset successfully", body["message"])
	assert.Equal(t, 1, svc.resets)
}
