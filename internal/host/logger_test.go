package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSetLogger_IgnoresNil(t *testing.T) {
	prev := Logger()
	require.NotNil(t, prev)
	t.Cleanup(func() { SetLogger(prev) })

	SetLogger(nil)
	assert.Same(t, prev, Logger())
	assert.NotPanics(t, func() { Logger().Debug("still logging") })

	l := zap.NewNop()
	SetLogger(l)
	assert.Same(t, l, Logger())
}
