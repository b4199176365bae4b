// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package binding_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/storagebridge/binding"
	"github.com/born-ml/storagebridge/storage"
)

func TestPublicAPI_Lifecycle(t *testing.T) {
	rt, err := binding.NewRuntime(binding.DefaultRuntimeConfig())
	require.NoError(t, err)
	defer func() { require.NoError(t, rt.Close()) }()

	mod, err := rt.NewModule("born")
	require.NoError(t, err)
	b, err := binding.Init(rt, mod)
	require.NoError(t, err)
	require.NoError(t, rt.RunPostInit())

	class, ok := mod.Attr("UntypedStorage")
	require.True(t, ok)
	assert.Same(t, b.Type(), class)

	s, err := storage.New(16)
	require.NoError(t, err)
	keep := s.Clone()
	defer keep.Release()

	obj, err := b.New(s)
	require.NoError(t, err)
	assert.Equal(t, binding.StateWrapping, obj.State())
	assert.Equal(t, 2, keep.UseCount())

	view := binding.Unpack(obj)
	require.NotNil(t, view)
	assert.True(t, view.Is(keep))
	assert.Same(t, view, binding.UnpackObject(obj))

	require.NoError(t, rt.Decref(obj))
	assert.Equal(t, binding.StateReleased, obj.State())
	assert.Equal(t, 1, keep.UseCount())
}
