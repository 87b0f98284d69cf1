package activation

// busyGuard sets a flag for the duration of a transition and restores the
// value it found, so early returns and panics cannot leave it stuck.
type busyGuard struct {
	flag *bool
	prev bool
}

func lockBusy(flag *bool) busyGuard {
	g := busyGuard{flag: flag, prev: *flag}
	*flag = true
	return g
}

func (g busyGuard) release() {
	*g.flag = g.prev
}
