package fs

import (
	"os"
	"strconv"
	"time"
)

// Clock is the injected wall-clock time source. It produces the 32-bit
// seconds value stamped into inode mtimes; the core never calls time.Now()
// directly, the same injection style jacobsa-fuse's timeutil package and
// gcsfuse's clock package use to keep the core testable.
type Clock interface {
	Now() uint32
}

// SystemClock is the production Clock. It honors SOURCE_DATE_EPOCH for
// reproducible filesystem images, the same convention
// util/timestamp.GetTime uses for reproducible builds.
type SystemClock struct{}

var _ Clock = SystemClock{}

func (SystemClock) Now() uint32 {
	if epoch := os.Getenv("SOURCE_DATE_EPOCH"); epoch != "" {
		if v, err := strconv.ParseInt(epoch, 10, 64); err == nil {
			return uint32(v)
		}
	}
	return uint32(time.Now().Unix())
}

// FixedClock is a Clock that always returns the same value, for tests that
// need deterministic mtimes.
type FixedClock uint32

var _ Clock = FixedClock(0)

func (c FixedClock) Now() uint32 {
	return uint32(c)
}
