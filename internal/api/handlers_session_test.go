package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/efiling-portal/backend/internal/models"
	"github.com/efiling-portal/backend/internal/session"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestSessionHandler_Lifecycle(t *testing.T) {
	deps := newTestDeps(t)
	handler := NewSessionHandler(deps.SessionMgr, deps.Catalog)

	c, rec := newContext(http.MethodPost, "/api/sessions", nil, "", nil)
	require.NoError(t, handler.HandleCreateSession(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var created session.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Empty(t, created.Uploads)
	assert.False(t, created.Ready)

	params := map[string]string{"sessionId": created.ID}

	c, rec = newContext(http.MethodGet, "/", nil, "", params)
	require.NoError(t, handler.HandleGetSession(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"`+created.ID+`"`)

	c, rec = newContext(http.MethodDelete, "/", nil, "", params)
	require.NoError(t, handler.HandleCloseSession(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, _ = newContext(http.MethodGet, "/", nil, "", params)
	requireAPIError(t, handler.HandleGetSession(c), http.StatusNotFound, "NOT_FOUND")

	c, _ = newContext(http.MethodDelete, "/", nil, "", params)
	requireAPIError(t, handler.HandleCloseSession(c), http.StatusNotFound, "NOT_FOUND")
}

func TestSessionHandler_CloseAbortsUploads(t *testing.T) {
	deps := newTestDeps(t)
	sess := newSession(t, deps)
	aborted := false
	require.NoError(t, sess.Add(models.NewTrackedUpload("x", "x.pdf", 1, "application/pdf"), func() { aborted = true }))

	c, _ := newContext(http.MethodDelete, "/", nil, "", map[string]string{"sessionId": sess.ID})
	require.NoError(t, NewSessionHandler(deps.SessionMgr, deps.Catalog).HandleCloseSession(c))

	assert.True(t, aborted)
	assert.True(t, sess.Closed())
}

func TestSessionHandler_SessionCap(t *testing.T) {
	mgr := session.NewManager(1)
	t.Cleanup(mgr.CloseAll)
	busy, err := mgr.Create()
	require.NoError(t, err)
	require.True(t, busy.BeginSubmit())

	c, _ := newContext(http.MethodPost, "/api/sessions", nil, "", nil)
	requireAPIError(t, NewSessionHandler(mgr, nil).HandleCreateSession(c), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")
}

func TestSessionHandler_HandleGetSessionMsgpack(t *testing.T) {
	deps := newTestDeps(t)
	sess := newSession(t, deps)
	addUpload(t, sess, "affidavit.pdf", models.UploadStatusSuccess)

	c, rec := newContext(http.MethodGet, "/", nil, "", map[string]string{"sessionId": sess.ID})
	require.NoError(t, NewSessionHandler(deps.SessionMgr, deps.Catalog).HandleGetSessionMsgpack(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))

	var decoded map[string]interface{}
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, sess.ID, decoded["id"])
	assert.Equal(t, true, decoded["ready"])

	uploads, ok := decoded["uploads"].([]interface{})
	require.True(t, ok)
	require.Len(t, uploads, 1)
	first := uploads[0].(map[string]interface{})
	assert.Equal(t, "affidavit.pdf", first["name"])
	assert.Equal(t, "success", first["status"])
}

func TestSessionHandler_HandleUpdateMetadata(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   string
		wantField string
	}{
		{
			name: "complete metadata",
			body: `{"caseNumber":"HCCC/2024/001","court":"hc-nairobi","documentType":"pleading","description":"Plaint"}`,
		},
		{
			name: "partial metadata is stored",
			body: `{"caseNumber":"HCCC/2024/001"}`,
		},
		{
			name:    "unknown court",
			body:    `{"caseNumber":"X","court":"supreme-mars"}`,
			wantErr: "VALIDATION_ERROR",
		},
		{
			name:    "unknown document type",
			body:    `{"caseNumber":"X","documentType":"memo"}`,
			wantErr: "VALIDATION_ERROR",
		},
		{
			name:    "malformed json",
			body:    `{"caseNumber":`,
			wantErr: "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps(t)
			sess := newSession(t, deps)
			handler := NewSessionHandler(deps.SessionMgr, deps.Catalog)

			c, rec := newContext(http.MethodPut, "/", bytes.NewBufferString(tt.body), echo.MIMEApplicationJSON,
				map[string]string{"sessionId": sess.ID})
			err := handler.HandleUpdateMetadata(c)

			if tt.wantErr != "" {
				requireAPIError(t, err, http.StatusBadRequest, tt.wantErr)
				assert.True(t, sess.Metadata().IsZero())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, rec.Code)

			var want models.CaseMetadata
			require.NoError(t, json.Unmarshal([]byte(tt.body), &want))
			assert.Equal(t, want, sess.Metadata())
		})
	}
}
