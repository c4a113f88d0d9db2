package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"volunteerhub/internal/apperr"
)

func respondStatus(err error) int {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondErr(c, err)
	return w.Code
}

func TestRespondErrStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Validation("bad input", "title too short"), http.StatusBadRequest},
		{apperr.Unauthenticated("no token"), http.StatusUnauthorized},
		{apperr.Forbidden("wrong role"), http.StatusForbidden},
		{apperr.NotFound("no such event"), http.StatusNotFound},
		{apperr.Conflict(apperr.ReasonAlreadyDecided, "already decided"), http.StatusConflict},
		{apperr.Dependency("db down", errors.New("dial tcp")), http.StatusBadGateway},
		{errors.New("untyped"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, respondStatus(tc.err), "%v", tc.err)
	}
}

func TestRespondErrBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondErr(c, apperr.Conflict(apperr.ReasonCapacityExceeded, "event is full"))

	assert.JSONEq(t,
		`{"error":{"code":"CONFLICT","reason":"CAPACITY_EXCEEDED","message":"event is full"}}`,
		w.Body.String())
}
