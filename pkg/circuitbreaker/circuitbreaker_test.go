package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(Settings{Name: "test", MaxFailures: 2, Timeout: time.Minute})

	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(Settings{Name: "test", MaxFailures: 1, Timeout: time.Second})
	cb.now = func() time.Time { return now }

	assert.Error(t, cb.Execute(func() error { return errBoom }))
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Second)
	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(Settings{Name: "test", MaxFailures: 3, Timeout: time.Second})
	cb.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errBoom })
	}
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Second)
	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, cb.State())
}
