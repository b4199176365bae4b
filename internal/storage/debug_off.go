//go:build !storagedebug

package storage

const debugBorrows = false

func borrowAlive(*Storage) bool { return true }
