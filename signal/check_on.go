//go:build !attila_nocheck

package signal

// checksEnabled turns on the misuse panics and the data-loss scan. Build with
// the attila_nocheck tag to compile them out.
const checksEnabled = true
