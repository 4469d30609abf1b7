package usecase

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"interview-monitor/internal/domain"
	"interview-monitor/internal/infrastructure/clock"
)

type schedFixture struct {
	mu    sync.Mutex
	clk   *clock.Fake
	src   *fakeSource
	enc   *fakeEncoder
	ft    *fakeTransport
	reg   *VideoSourceRegistry
	s     *FrameCaptureScheduler
	lost  int
	fatal []error
}

func newSchedFixture(t *testing.T) *schedFixture {
	f := &schedFixture{
		clk: clock.NewFake(time.Unix(0, 0)),
		src: newSource("cam", 320, 240),
		enc: &fakeEncoder{},
		ft:  newFakeTransport(),
	}
	f.reg = NewVideoSourceRegistry(newFakeHost(f.src), nopLogger())
	f.reg.SelectSource(f.src)
	f.s = NewFrameCaptureScheduler(f.clk, f.reg, f.enc, nopLogger(), nil)
	f.ft.emit(domain.Connected{})
	t.Cleanup(func() { f.exec(f.s.Cancel) })
	return f
}

func (f *schedFixture) exec(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn()
}

func (f *schedFixture) start() {
	f.exec(func() {
		f.s.Start(CaptureRun{
			Interval:     testInterval,
			Transport:    f.ft,
			Exec:         f.exec,
			OnTargetLost: func() { f.lost++ },
			OnFatal:      func(err error) { f.fatal = append(f.fatal, err); f.s.Cancel() },
		})
	})
}

func (f *schedFixture) read(fn func()) { f.exec(fn) }

func TestSchedulerFirstTickAfterOneInterval(t *testing.T) {
	f := newSchedFixture(t)
	f.start()
	f.clk.Advance(testInterval - time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 0, f.ft.frameCount())

	f.clk.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return f.ft.frameCount() == 1 }, time.Second, 2*time.Millisecond)
	require.Contains(t, f.ft.frames[0], "data:image/jpeg;base64,")
}

func TestSchedulerNoTickAfterCancel(t *testing.T) {
	f := newSchedFixture(t)
	for round := 0; round < 3; round++ {
		f.start()
		before := f.ft.frameCount()
		f.clk.Advance(testInterval)
		require.Eventually(t, func() bool { return f.ft.frameCount() == before+1 }, time.Second, 2*time.Millisecond)

		f.exec(f.s.Cancel)
		stopped := f.ft.frameCount()
		for i := 0; i < 5; i++ {
			f.clk.Advance(testInterval)
		}
		time.Sleep(20 * time.Millisecond)
		require.Equal(t, stopped, f.ft.frameCount())
		f.read(func() { require.False(t, f.s.Running()) })
	}
}

func TestSchedulerSkipsNotReadyAndReportsLost(t *testing.T) {
	f := newSchedFixture(t)
	f.src.setReady(false)
	f.start()
	f.clk.Advance(testInterval)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 0, f.enc.callCount())
	f.read(func() { require.Zero(t, f.lost) })

	f.src.detach()
	f.clk.Advance(testInterval)
	require.Eventually(t, func() bool {
		n := 0
		f.read(func() { n = f.lost })
		return n == 1
	}, time.Second, 2*time.Millisecond)
}

func TestSchedulerDropsFramesWhileDisconnected(t *testing.T) {
	f := newSchedFixture(t)
	f.ft.emit(domain.Disconnected{Reason: "transport close"})
	f.start()
	f.clk.Advance(testInterval)
	require.Eventually(t, func() bool { return f.enc.callCount() == 1 }, time.Second, 2*time.Millisecond)
	f.read(func() { require.Zero(t, f.s.ErrorCount()) })
	require.Equal(t, 0, f.ft.frameCount())
}

func TestSchedulerErrorCeiling(t *testing.T) {
	f := newSchedFixture(t)
	f.enc.setFail(true)
	f.start()

	advance := func(wantCalls int) {
		f.clk.Advance(testInterval)
		require.Eventually(t, func() bool { return f.enc.callCount() == wantCalls }, time.Second, 2*time.Millisecond)
		f.read(func() {})
	}
	for i := 1; i <= 9; i++ {
		advance(i)
	}
	f.read(func() { require.Equal(t, uint(9), f.s.ErrorCount()) })

	f.enc.setFail(false)
	advance(10)
	f.read(func() { require.Zero(t, f.s.ErrorCount()) })

	f.enc.setFail(true)
	for i := 11; i <= 20; i++ {
		advance(i)
	}
	f.read(func() {
		require.Len(t, f.fatal, 1)
		require.ErrorIs(t, f.fatal[0], domain.ErrCaptureFailed)
	})
	f.clk.Advance(testInterval)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 20, f.enc.callCount())
}
