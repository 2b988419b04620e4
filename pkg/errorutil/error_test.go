package errorutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindPredicates(t *testing.T) {
	assert.True(t, IsMalformed(Malformed("bad message")))
	assert.True(t, IsPrecondition(Precondition("no account")))
	assert.True(t, IsTransport(Transport("submit failed", "JOB1", nil)))
	assert.True(t, IsTimeout(Timeout("poll budget exhausted", "JOB1")))

	assert.False(t, IsTimeout(Transport("submit failed", "JOB1", nil)))
	assert.False(t, IsMalformed(errors.New("plain")))
}

func TestRefIDSurvivesWrapping(t *testing.T) {
	err := Timeout("poll budget exhausted", "750JOB")
	wrapped := fmt.Errorf("data job: %w", err)

	assert.True(t, IsTimeout(wrapped))
	assert.Equal(t, "750JOB", RefID(wrapped))
	assert.Equal(t, "", RefID(errors.New("plain")))

	// 外部引用 ID 出现在错误文本里，便于运维关联
	assert.Contains(t, err.Error(), "750JOB")
}

func TestTransportUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Transport("poll failed", "JOB1", cause)
	assert.ErrorIs(t, err, cause)
}
