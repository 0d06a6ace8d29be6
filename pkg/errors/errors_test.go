package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFollowsWrapping(t *testing.T) {
	err := fmt.Errorf("failed to update need: %w", Locked("need is locked"))

	assert.True(t, Is(err, ErrLocked))
	assert.False(t, Is(err, ErrState))
	assert.False(t, Is(fmt.Errorf("plain"), ErrLocked))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[*AppError]int{
		Validation("bad"):           http.StatusBadRequest,
		Permission("not yours"):     http.StatusForbidden,
		Locked("locked"):            http.StatusLocked,
		State("not pending"):        http.StatusConflict,
		Duplicate("exists", nil):    http.StatusConflict,
		NotFound("need", nil):       http.StatusNotFound,
		Internal(fmt.Errorf("boom")): http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, err.HTTPStatus(), err.Error())
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Duplicate("interest already pending", fmt.Errorf("unique violation"))
	assert.Equal(t, "interest already pending: unique violation", err.Error())

	appErr, ok := As(fmt.Errorf("wrapped: %w", err))
	assert.True(t, ok)
	assert.Equal(t, ErrDuplicate, appErr.Code)
}
