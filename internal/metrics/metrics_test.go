package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSync(t *testing.T) {
	r := New()

	r.RecordSync("foo", true, "", 2*time.Second)
	r.RecordSync("foo", true, "", time.Second)
	r.RecordSync("bar", false, "push", time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.syncCount.WithLabelValues("foo", "true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.syncCount.WithLabelValues("bar", "false")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.stageFailures.WithLabelValues("push")))
	assert.Greater(t, testutil.ToFloat64(r.lastSync.WithLabelValues("foo")), float64(0))

	// no timestamp for a repository that never succeeded
	assert.Equal(t, 1, testutil.CollectAndCount(r.lastSync))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordSync("foo", false, "push", time.Second)
	})
	assert.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.RecordSync("foo", true, "", time.Second)

	path := filepath.Join(t.TempDir(), "ghmirror.prom")
	require.NoError(t, r.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.True(t, strings.Contains(out, `ghmirror_sync_total{repo="foo",success="true"} 1`), out)
	assert.Contains(t, out, "ghmirror_sync_duration_seconds_bucket")
}

func TestWriteTextfileDisabled(t *testing.T) {
	assert.NoError(t, New().WriteTextfile(""))
}
