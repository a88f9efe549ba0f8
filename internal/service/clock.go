package service

import "time"

// Clock supplies the platform receipt time of submissions
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// unixSeconds truncates the clock to the 32-bit seconds the scan log stores
func unixSeconds(c Clock) uint32 {
	return uint32(c.Now().Unix())
}
