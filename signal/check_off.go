//go:build attila_nocheck

package signal

const checksEnabled = false
