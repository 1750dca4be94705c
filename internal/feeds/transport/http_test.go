package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bez-dna/bzd-flux/internal/feeds/read"
	"github.com/bez-dna/bzd-flux/internal/logging"
)

type fakeReadService struct {
	page read.Page
	err  error
}

func (f *fakeReadService) GetUserEntries(context.Context, uuid.UUID, *uuid.UUID) (read.Page, error) {
	return f.page, f.err
}

func TestHandleGetUserEntriesReturnsMessageIDsAndCursor(t *testing.T) {
	messageID := uuid.Must(uuid.NewV7())
	cursor := uuid.Must(uuid.NewV7())
	svc := &fakeReadService{page: read.Page{MessageIDs: []uuid.UUID{messageID}, NextCursor: &cursor}}

	router := NewRouter(svc, logging.NewNop())

	body, _ := json.Marshal(map[string]string{"user_id": uuid.Must(uuid.NewV7()).String()})
	req := httptest.NewRequest(http.MethodPost, "/get_user_entries", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp getUserEntriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{messageID.String()}, resp.MessageIDs)
	require.NotNil(t, resp.CursorEntryID)
	assert.Equal(t, cursor.String(), *resp.CursorEntryID)
}

func TestHandleGetUserEntriesRejectsInvalidUserID(t *testing.T) {
	svc := &fakeReadService{}
	router := NewRouter(svc, logging.NewNop())

	body, _ := json.Marshal(map[string]string{"user_id": "not-a-uuid"})
	req := httptest.NewRequest(http.MethodPost, "/get_user_entries", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthzReturnsOK(t *testing.T) {
	router := NewRouter(&fakeReadService{}, logging.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
