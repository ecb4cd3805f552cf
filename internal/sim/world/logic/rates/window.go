// Package rates limits how many commands a caller may issue per tick window.
package rates

// Window admits at most Max events per Length ticks. The zero value, or a
// non-positive Max, admits everything.
type Window struct {
	Length uint64
	Max    int

	start uint64
	count int
}

// Allow records one event at nowTick. When the window is full it reports
// false and the number of ticks until the window reopens.
func (w *Window) Allow(nowTick uint64) (ok bool, retryIn uint64) {
	if w.Length == 0 || w.Max <= 0 {
		return true, 0
	}
	if nowTick < w.start || nowTick-w.start >= w.Length {
		w.start = nowTick
		w.count = 0
	}
	if w.count < w.Max {
		w.count++
		return true, 0
	}
	return false, w.start + w.Length - nowTick
}
