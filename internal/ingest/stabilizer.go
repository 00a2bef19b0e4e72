package ingest

import (
	"os"
	"time"

	"github.com/boothy-app/camera-core/internal/config"
)

// Result is C4's closed set of stabilization outcomes.
type Result int

const (
	ResultStable Result = iota
	ResultTimeout
	ResultNotFound
	ResultLocked
)

func (r Result) String() string {
	switch r {
	case ResultStable:
		return "stable"
	case ResultTimeout:
		return "timeout"
	case ResultNotFound:
		return "not_found"
	default:
		return "locked"
	}
}

// pollUntilStable implements the stability algorithm: a file is stable
// once its size has not changed across stableCountRequired consecutive
// polls, its modification time is at least minAgeMs in the past, and it
// can be opened for reading.
func pollUntilStable(path string, cfg config.Stabilizer, sleep func(time.Duration)) (Result, int64) {
	start := time.Now()
	var lastSize int64 = -1
	stableCount := 0
	lockedDetected := false

	for {
		if time.Since(start) >= cfg.MaxWait {
			if lockedDetected {
				return ResultLocked, lastSize
			}
			return ResultTimeout, lastSize
		}

		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return ResultNotFound, lastSize
			}
			sleep(cfg.PollInterval)
			continue
		}

		if time.Since(info.ModTime()) < cfg.MinAge {
			sleep(cfg.PollInterval)
			continue
		}

		size := info.Size()
		if size == lastSize {
			stableCount++
			if stableCount >= cfg.StableCountRequired {
				f, err := os.Open(path)
				if err != nil {
					lockedDetected = true
					stableCount = 0
					sleep(cfg.PollInterval)
					continue
				}
				f.Close()
				return ResultStable, size
			}
		} else {
			stableCount = 0
			lastSize = size
		}

		sleep(cfg.PollInterval)
	}
}
