package helpers

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldErrors(t *testing.T) {
	t.Parallel()

	assert.NoError(t, FoldErrors(nil))
	assert.NoError(t, FoldErrors([]error{nil, nil}))

	err := FoldErrors([]error{fmt.Errorf("first"), nil, fmt.Errorf("second")})
	require.Error(t, err)
	assert.Equal(t, "first\nsecond", err.Error())
}

func TestDurationDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 7*time.Second, IntSecondDefault(0, 7*time.Second))
	assert.Equal(t, 2*time.Second, IntSecondDefault(2, 7*time.Second))
	assert.Equal(t, 3*time.Second, IntMillisecondDefault(-1, 3*time.Second))
	assert.Equal(t, 50*time.Millisecond, IntMillisecondDefault(50, time.Second))
}
