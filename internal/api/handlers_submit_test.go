package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/efiling-portal/backend/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validMetadataJSON = `{"caseNumber":"HCCC/2024/001","court":"hc-nairobi","documentType":"pleading"}`

func TestSubmitHandler_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []models.UploadStatus
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no files",
			body:       validMetadataJSON,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "NO_FILES",
		},
		{
			name:       "upload still processing",
			statuses:   []models.UploadStatus{models.UploadStatusSuccess, models.UploadStatusProcessing},
			body:       validMetadataJSON,
			wantStatus: http.StatusConflict,
			wantCode:   "INCOMPLETE_UPLOADS",
		},
		{
			name:       "missing metadata",
			statuses:   []models.UploadStatus{models.UploadStatusSuccess},
			body:       `{"caseNumber":"HCCC/2024/001"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "MISSING_METADATA",
		},
		{
			name:       "unknown court",
			statuses:   []models.UploadStatus{models.UploadStatusSuccess},
			body:       `{"caseNumber":"X","court":"nowhere","documentType":"pleading"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps(t)
			sess := newSession(t, deps)
			for i, st := range tt.statuses {
				addUpload(t, sess, string(rune('a'+i))+".pdf", st)
			}
			handler := NewSubmitHandler(deps.SessionMgr, deps.Gate, deps.Catalog)

			c, _ := newContext(http.MethodPost, "/", bytes.NewBufferString(tt.body), echo.MIMEApplicationJSON,
				map[string]string{"sessionId": sess.ID})
			requireAPIError(t, handler.HandleSubmit(c), tt.wantStatus, tt.wantCode)

			assert.Equal(t, len(tt.statuses), sess.Len(), "a refused submission leaves the session as it was")
		})
	}
}

func TestSubmitHandler_MissingMetadataDetails(t *testing.T) {
	deps := newTestDeps(t)
	sess := newSession(t, deps)
	addUpload(t, sess, "a.pdf", models.UploadStatusSuccess)

	c, _ := newContext(http.MethodPost, "/", bytes.NewBufferString(`{"description":"only this"}`), echo.MIMEApplicationJSON,
		map[string]string{"sessionId": sess.ID})
	apiErr := requireAPIError(t, NewSubmitHandler(deps.SessionMgr, deps.Gate, deps.Catalog).HandleSubmit(c),
		http.StatusUnprocessableEntity, "MISSING_METADATA")
	assert.Equal(t, []string{"caseNumber", "court", "documentType"}, strings.Split(apiErr.Details, ","))
}

func TestSubmitHandler_Success(t *testing.T) {
	deps := newTestDeps(t)
	sess := newSession(t, deps)
	addUpload(t, sess, "plaint.pdf", models.UploadStatusSuccess)
	addUpload(t, sess, "affidavit.pdf", models.UploadStatusSuccess)
	handler := NewSubmitHandler(deps.SessionMgr, deps.Gate, deps.Catalog)

	c, rec := newContext(http.MethodPost, "/", bytes.NewBufferString(validMetadataJSON), echo.MIMEApplicationJSON,
		map[string]string{"sessionId": sess.ID})
	require.NoError(t, handler.HandleSubmit(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var conf models.Confirmation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conf))
	assert.NotEmpty(t, conf.Reference)
	assert.Equal(t, 2, conf.DocumentCount)
	assert.Equal(t, "Case HCCC/2024/001 - 2 document(s) filed.", conf.Message)

	assert.Equal(t, 0, sess.Len())
	assert.True(t, sess.Metadata().IsZero())
}

func TestSubmitHandler_FallsBackToStoredMetadata(t *testing.T) {
	deps := newTestDeps(t)
	sess := newSession(t, deps)
	addUpload(t, sess, "motion.pdf", models.UploadStatusSuccess)
	require.NoError(t, sess.SetMetadata(models.CaseMetadata{
		CaseNumber:   "ELC/2024/77",
		Court:        "elc-nairobi",
		DocumentType: "motion",
	}))

	c, rec := newContext(http.MethodPost, "/", nil, "", map[string]string{"sessionId": sess.ID})
	require.NoError(t, NewSubmitHandler(deps.SessionMgr, deps.Gate, deps.Catalog).HandleSubmit(c))

	var conf models.Confirmation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conf))
	assert.Equal(t, "ELC/2024/77", conf.CaseNumber)
	assert.Equal(t, "elc-nairobi", conf.Court)
	assert.Equal(t, 1, conf.DocumentCount)
}

func TestSubmitHandler_InProgress(t *testing.T) {
	deps := newTestDeps(t)
	sess := newSession(t, deps)
	addUpload(t, sess, "a.pdf", models.UploadStatusSuccess)
	require.True(t, sess.BeginSubmit())
	defer sess.EndSubmit()

	c, _ := newContext(http.MethodPost, "/", bytes.NewBufferString(validMetadataJSON), echo.MIMEApplicationJSON,
		map[string]string{"sessionId": sess.ID})
	requireAPIError(t, NewSubmitHandler(deps.SessionMgr, deps.Gate, deps.Catalog).HandleSubmit(c),
		http.StatusConflict, "SUBMISSION_IN_PROGRESS")
}
