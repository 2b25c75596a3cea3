package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleUploadRejectsWrongMethod(t *testing.T) {
	s := &Server{processor: nil}
	req := httptest.NewRequest(http.MethodGet, "/abi/upload/0xabc", nil)
	rec := httptest.NewRecorder()

	s.handleUpload(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleUploadRejectsMissingAddress(t *testing.T) {
	s := &Server{processor: nil}
	req := httptest.NewRequest(http.MethodPost, "/abi/upload/", strings.NewReader("[]"))
	rec := httptest.NewRecorder()

	s.handleUpload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUploadRejectsInvalidABI(t *testing.T) {
	s := &Server{processor: nil}
	req := httptest.NewRequest(http.MethodPost, "/abi/upload/0xabc", strings.NewReader(`[{"type":"weirdtype"}]`))
	rec := httptest.NewRecorder()

	s.handleUpload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to parse abi")
}
