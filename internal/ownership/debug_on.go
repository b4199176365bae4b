//go:build storagedebug

package ownership

// debugBorrows enables DebugBorrowIsValid checks on every borrow projection.
const debugBorrows = true
