package utils

import "time"

// WaitForCondition polls condition every interval until it returns true or the
// timeout elapses. It returns whether the condition was met.
func WaitForCondition(timeout, interval time.Duration, condition func() bool) bool {
	if timeout <= 0 {
		return condition()
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(interval)
	}

	return condition()
}
