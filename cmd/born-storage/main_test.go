package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"version"}, &out))
	assert.Equal(t, "born-storage "+version+"\n", out.String())
}

func TestRun_UnknownCommand(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorIs(t, run([]string{"serve"}, &out), errUsage)
}

func TestRun_Trace(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "born.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log:\n  level: error\n"), 0o600))

	var out bytes.Buffer
	require.NoError(t, run([]string{"trace", "-config", cfgPath, "-bytes", "128"}, &out))
	assert.Equal(t, "1,1,1,1,0\n", out.String())
}

func TestRun_TraceGCCollector(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "born.yaml")
	cfg := "log:\n  level: error\nhost:\n  collector: gc\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	var out bytes.Buffer
	require.NoError(t, run([]string{"trace", "-config", cfgPath}, &out))
	assert.Equal(t, "1,1,1,1,0\n", out.String())
}

func TestRun_TraceBadConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "born.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("bogus: 1\n"), 0o600))

	var out bytes.Buffer
	assert.Error(t, run([]string{"trace", "-config", cfgPath}, &out))
}

func TestRun_PackAndInspect(t *testing.T) {
	dir := t.TempDir()
	weights := filepath.Join(dir, "w.bin")
	bias := filepath.Join(dir, "b.bin")
	require.NoError(t, os.WriteFile(weights, []byte("weights"), 0o600))
	require.NoError(t, os.WriteFile(bias, []byte{1, 2, 3}, 0o600))
	container := filepath.Join(dir, "model.born")

	var out bytes.Buffer
	require.NoError(t, run([]string{
		"pack", "-meta", "model=tiny", container,
		"layer.0.w=" + weights, "layer.0.b=" + bias,
	}, &out))
	assert.Contains(t, out.String(), "wrote 2 storages")

	out.Reset()
	require.NoError(t, run([]string{"inspect", "-verify", container}, &out))
	assert.Contains(t, out.String(), "layer.0.w")
	assert.Contains(t, out.String(), "layer.0.b")
	assert.Contains(t, out.String(), "tiny")
	assert.Contains(t, out.String(), "checksum ok")
}

func TestRun_PackBadInput(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"pack", filepath.Join(t.TempDir(), "x.born"), "noequals"}, &out)
	assert.ErrorIs(t, err, errUsage)

	err = run([]string{"pack"}, &out)
	assert.ErrorIs(t, err, errUsage)
}

func TestRun_TraceShared(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shared file mappings are unix only")
	}
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "born.yaml")
	cfg := "log:\n  level: error\nstorage:\n  shared_dir: " + dir + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	var out bytes.Buffer
	require.NoError(t, run([]string{"trace", "-config", cfgPath, "-share"}, &out))
	assert.Contains(t, out.String(), "shared: "+filepath.Join(dir, "born_storage_"))
	assert.Contains(t, out.String(), "1,1,1,1,0\n")

	matches, err := filepath.Glob(filepath.Join(dir, "born_storage_*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "shared file is removed with the storage")
}
