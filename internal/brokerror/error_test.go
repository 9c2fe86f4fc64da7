package brokerror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Retryable(t *testing.T) {
	cases := []struct {
		kind Kind
		want bool
	}{
		{ProviderTransient, true},
		{Timeout, true},
		{Validation, false},
		{NotFound, false},
		{Conflict, false},
		{ProviderPermanent, false},
		{CircuitOpen, false},
		{Cancelled, false},
		{Internal, false},
	}
	for _, c := range cases {
		e := New(c.kind, "boom")
		assert.Equal(t, c.want, e.Retryable(), "kind %s", c.kind)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("sdk exploded")
	e := Wrap(ProviderTransient, "ec2 call failed", cause)
	assert.ErrorIs(t, e, cause)
	assert.Contains(t, e.Error(), "ec2 call failed")
	assert.Contains(t, e.Error(), "sdk exploded")
}

func TestError_WithField(t *testing.T) {
	e := New(Validation, "bad template").WithField("field", "max_number")
	require.NotNil(t, e.Fields)
	assert.Equal(t, "max_number", e.Fields["field"])

	// original is untouched
	orig := New(Validation, "bad template")
	assert.Nil(t, orig.Fields)
}

func TestOf(t *testing.T) {
	assert.Equal(t, ProviderTransient, Of(New(ProviderTransient, "x")))
	assert.Equal(t, Internal, Of(errors.New("plain error")))

	wrapped := fmt.Errorf("context: %w", New(NotFound, "missing"))
	assert.Equal(t, NotFound, Of(wrapped))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(Timeout, "slow")))
	assert.False(t, IsRetryable(New(Validation, "bad")))
	assert.False(t, IsRetryable(errors.New("plain")))
}
