package profiling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfiler_CPUAndHeap(t *testing.T) {
	// Given: a profiler with both outputs
	dir := t.TempDir()
	p := &Profiler{
		CPUPath:  filepath.Join(dir, "cpu.prof"),
		HeapPath: filepath.Join(dir, "heap.prof"),
	}

	// When: profiling some work
	require.NoError(t, p.Start())
	sum := 0
	for i := 0; i < 1000000; i++ {
		sum += i
	}
	_ = sum
	require.NoError(t, p.Stop())

	// Then: both files have content
	for _, name := range []string{"cpu.prof", "heap.prof"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}
}

func TestProfiler_ZeroValue(t *testing.T) {
	// Given: no outputs configured
	var p Profiler

	// Then: start and stop do nothing
	assert.NoError(t, p.Start())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestProfiler_BadPath(t *testing.T) {
	// Given: a CPU path in a missing directory
	p := &Profiler{CPUPath: filepath.Join(t.TempDir(), "missing", "cpu.prof")}

	// When: starting
	err := p.Start()

	// Then: it fails
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CPU profile")
	assert.NoError(t, p.Stop())
}
