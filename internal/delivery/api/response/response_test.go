package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	deliverycontext "agency/internal/delivery/context"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/errors"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	deliverycontext.SetRequestID(c, "req-1")

	return c, rec
}

func TestHandleAppError_RendersDomainError(t *testing.T) {
	c, rec := newContext()

	err := HandleAppError(c, errors.Wrap(domainerrors.ErrInvalidStatus.WithDetails("paused"), "update"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_STATUS", body.Error.Code)
	assert.Equal(t, "paused", body.Error.Details)
	assert.Equal(t, "req-1", body.Meta.RequestID)
}

func TestHandleAppError_PassesThroughOtherErrors(t *testing.T) {
	c, rec := newContext()
	boom := errors.New("boom")

	err := HandleAppError(c, boom)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestError_HidesDetailsOnForbidden(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, Error(c, http.StatusForbidden, "FORBIDDEN", "no", "secret"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.Error.Details)
}

func TestList_EmptyIsArrayWithCount(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, List[string](c, nil))
	assert.JSONEq(t, `{"data":[],"meta":{"request_id":"req-1","count":0}}`, rec.Body.String())
}
