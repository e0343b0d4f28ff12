//go:build !release

package assert_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	feederassert "github.com/argus-labs/oracle-feeder/pkg/assert"
)

func TestThat(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() { feederassert.That(true, "never") })
	assert.PanicsWithValue(t, "assertion failed: depth 3 > 2", func() { feederassert.That(false, "depth %d > %d", 3, 2) })
}

func TestUnreachable(t *testing.T) {
	t.Parallel()

	assert.PanicsWithValue(t, "assertion failed: unreachable log format", func() { feederassert.Unreachable("log format") })
}
