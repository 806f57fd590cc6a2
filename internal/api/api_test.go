package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/runoshun/crew-board/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{fmt.Errorf("get: %w", domain.ErrTaskNotFound), http.StatusNotFound, CodeTaskNotFound},
		{domain.ErrProjectNotFound, http.StatusNotFound, CodeProjectNotFound},
		{domain.ErrTaskNotQueued, http.StatusConflict, CodeTaskNotQueued},
		{fmt.Errorf("%w: %q", domain.ErrInvalidStatus, "x"), http.StatusBadRequest, CodeInvalidStatus},
		{domain.ErrEmptyTitle, http.StatusBadRequest, CodeEmptyTitle},
		{fmt.Errorf("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			status, code := Classify(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestErrorForCode(t *testing.T) {
	for _, e := range errorCodes {
		assert.Equal(t, e.err, ErrorForCode(e.code), e.code)
	}
	assert.Nil(t, ErrorForCode(CodeInternal))
	assert.Nil(t, ErrorForCode("SOMETHING_NEW"))
}
