//go:build !linux && !darwin

package gdbstub

// chanWakeupSource is the portable fallback wakeup source for platforms
// without a cheap self-pipe equivalent: a buffered channel stands in for
// the eventfd write.
type chanWakeupSource struct {
	wake chan struct{}
}

func newChanWakeupSource() *chanWakeupSource {
	return &chanWakeupSource{wake: make(chan struct{}, 1)}
}

func (s *chanWakeupSource) Wait() {
	<-s.wake
}

func (s *chanWakeupSource) WakeForEvents() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *chanWakeupSource) Close() error {
	return nil
}

func newWakeupSource() (wakeupSource, error) {
	return newChanWakeupSource(), nil
}
