package timer

import (
	"sync/atomic"
	"time"
)

// Time contains the unix-time in milliseconds updated every [Resolution] milliseconds
var Time = new(atomic.Int64)

func Now() time.Time {
	millis := Time.Load()
	return time.Unix(millis/1000, (millis%1000)*1e6)
}

// Resolution is the frequency at which time is updated. Default 500ms are
// precise enough for setting I/O deadlines and the Date header
const Resolution = 500 * time.Millisecond

// DateFormat is the IMF-fixdate layout, as RFC 9110 requires for the Date header.
// It must be applied to UTC times only
const DateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// AppendDate appends the current time in DateFormat to b.
func AppendDate(b []byte) []byte {
	return Now().UTC().AppendFormat(b, DateFormat)
}

func init() {
	// there is no guarantee that the goroutine will be started immediately. If it won't,
	// some rapid usage of the timer will result in zero-time, which isn't great actually
	Time.Store(time.Now().UnixMilli())

	go func() {
		for {
			Time.Store(time.Now().UnixMilli())
			time.Sleep(Resolution)
		}
	}()
}
