// Package gpu allocates storages whose bytes are mirrored in WebGPU
// buffers.
//
// A GPU storage keeps a host copy of its bytes in DataPtr.Data and the
// device buffer in DataPtr.Context. Upload pushes the host copy to the
// device and Download pulls it back. Freed buffers go back to a
// size-bucketed pool for reuse.
//
// The package is built on Windows only, where the WebGPU native library
// is loaded without cgo.
package gpu
