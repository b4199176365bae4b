//go:build unix

package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromFile_Private(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.bin")
	require.NoError(t, os.WriteFile(path, []byte("abcdef"), 0o600))

	s, err := FromFile(path, false, 0)
	require.NoError(t, err)
	defer s.Release()

	assert.Equal(t, "abcdef", string(s.Data()))
	assert.False(t, s.IsShared())
	assert.False(t, s.Resizable())
	assert.Equal(t, path, s.Filename())

	// Private mappings are copy-on-write.
	s.Data()[0] = 'x'
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(onDisk))
}

func TestFromFile_TooShort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.bin")
	require.NoError(t, os.WriteFile(path, []byte("ab"), 0o600))

	_, err := FromFile(path, false, 10)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestFromFile_SharedGrowsAndWritesThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.bin")

	s, err := FromFile(path, true, 4)
	require.NoError(t, err)
	assert.True(t, s.IsShared())
	require.NoError(t, s.Fill('z'))
	s.Release()

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "zzzz", string(onDisk))
}

func TestStorage_ShareFilename(t *testing.T) {
	dir := t.TempDir()

	s, err := FromBytes([]byte("payload"))
	require.NoError(t, err)

	name, err := s.ShareFilename(dir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(name), sharedFilePrefix))
	assert.True(t, s.IsShared())
	assert.False(t, s.Resizable())
	assert.Equal(t, "payload", string(s.Data()))

	again, err := s.ShareFilename(dir)
	require.NoError(t, err)
	assert.Equal(t, name, again)

	peer, err := FromFile(name, true, 0)
	require.NoError(t, err)
	peer.Data()[0] = 'P'
	assert.Equal(t, "Payload", string(s.Data()))
	peer.Release()

	s.Release()
	_, err = os.Stat(name)
	assert.True(t, os.IsNotExist(err))
}
