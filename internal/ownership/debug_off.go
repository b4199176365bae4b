//go:build !storagedebug

package ownership

const debugBorrows = false
