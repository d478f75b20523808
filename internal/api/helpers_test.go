package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/efiling-portal/backend/internal/catalog"
	"github.com/efiling-portal/backend/internal/filing"
	"github.com/efiling-portal/backend/internal/models"
	"github.com/efiling-portal/backend/internal/session"
	"github.com/efiling-portal/backend/internal/transfer"
	"github.com/efiling-portal/backend/internal/upload"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

var pdfBytes = []byte("%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

// newTestDeps wires fast timings so uploads settle within milliseconds
func newTestDeps(t *testing.T) *Dependencies {
	t.Helper()
	sessionMgr := session.NewManager(0)
	t.Cleanup(sessionMgr.CloseAll)

	return &Dependencies{
		SessionMgr: sessionMgr,
		UploadMgr: upload.NewManager(upload.Options{
			Transport:   transfer.NewSimulated(transfer.SimulatedOptions{Interval: time.Millisecond}),
			SettleDelay: time.Millisecond,
		}),
		Gate:    filing.NewGate(-1),
		Catalog: catalog.Default(),
		Version: "test",
	}
}

func newSession(t *testing.T, deps *Dependencies) *session.Session {
	t.Helper()
	sess, err := deps.SessionMgr.Create()
	require.NoError(t, err)
	return sess
}

// addUpload puts a record with the given status straight into the session
func addUpload(t *testing.T, sess *session.Session, name string, status models.UploadStatus) models.TrackedUpload {
	t.Helper()
	u := models.NewTrackedUpload(name+"-id", name, int64(len(pdfBytes)), "application/pdf")
	u.Status = status
	if status != models.UploadStatusUploading {
		u.Progress = 100
	}
	require.NoError(t, sess.Add(u, nil))
	return u
}

type testFile struct {
	field       string
	name        string
	contentType string
	data        []byte
}

func pdfFile(name string) testFile {
	return testFile{field: "files", name: name, contentType: "application/pdf", data: pdfBytes}
}

func multipartBody(t *testing.T, files ...testFile) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.name))
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

// newContext builds an echo context for a session-scoped handler call
func newContext(method, target string, body io.Reader, contentType string, params map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	names := make([]string, 0, len(params))
	values := make([]string, 0, len(params))
	for k, v := range params {
		names = append(names, k)
		values = append(values, v)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c, rec
}

func requireAPIError(t *testing.T, err error, status int, code string) *APIError {
	t.Helper()
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %T (%v)", err, err)
	require.Equal(t, status, apiErr.Status)
	require.Equal(t, code, apiErr.Code)
	return apiErr
}
