package dualpi2

import (
	"time"
)

// CurrentMicrosDebug overrides TimeNow for deterministic tests.
var CurrentMicrosDebug uint64 = 0

func TimeNow() uint64 {
	if CurrentMicrosDebug != 0 {
		return CurrentMicrosDebug
	}
	return uint64(time.Now().UnixMicro())
}

func minUint64(a uint64, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func maxUint64(a uint64, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func clampProb(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
