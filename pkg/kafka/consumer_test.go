package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffWithJitterBounds(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 8; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, max)
	}
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue(map[string]int{"days": 7})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"days":7}`, string(b))

	b, err = encodeValue("raw")
	assert.NoError(t, err)
	assert.Equal(t, "raw", string(b))
}
