package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"lifedash-api/internal/model"
	"lifedash-api/pkg/apierror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_WritesPaginationMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	List(rec, model.List[string]{
		Items: []string{"c", "d"},
		Total: 5,
		Page:  model.Page{Number: 2, PerPage: 2},
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []string `json:"data"`
		Meta Meta     `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, []string{"c", "d"}, body.Data)
	assert.Equal(t, Meta{Page: 2, PerPage: 2, Total: 5, TotalPages: 3, HasNext: true, HasPrevious: true}, body.Meta)
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, apierror.NotFound("event not found"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")

	rec = httptest.NewRecorder()
	Error(rec, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}
