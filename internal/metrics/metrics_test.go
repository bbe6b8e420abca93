package metrics

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettbedarf/memfs"
)

func TestResult(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "not_found", Result(memfs.NewError(memfs.NotFound, "/a", "")))
	assert.Equal(t, "permission_denied", Result(memfs.Denied(memfs.ActionRead, "/a")))
	assert.Equal(t, "error", Result(errors.New("disk on fire")))
}

func TestPrometheus_ObserveOp(t *testing.T) {
	t.Parallel()
	p := NewPrometheus()
	p.ObserveOp("mkdir", nil, time.Millisecond)
	p.ObserveOp("mkdir", nil, time.Millisecond)
	p.ObserveOp("mkdir", memfs.ErrAlreadyExists, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.ops.WithLabelValues("mkdir", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.ops.WithLabelValues("mkdir", "already_exists")))
	assert.Equal(t, 1, testutil.CollectAndCount(p.duration))

	var buf bytes.Buffer
	require.NoError(t, p.WriteText(&buf))
	assert.Contains(t, buf.String(), `memfs_operations_total{op="mkdir",result="ok"} 2`)
}

func TestObserve_NilRecorder(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() { Observe(nil, "ls", nil, time.Now()) })
}
