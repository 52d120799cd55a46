package report

import (
	"time"

	"k8s.io/utils/clock"
)

type TimerState int

const (
	Stopped TimerState = iota
	Running
)

func (s TimerState) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Timer
// ------------------------------------------------------------
// report cycle 을 구동하는 단일 반복 타이머.
//
//   - Arm: 어느 상태에서든 Running. 이미 돌고 있으면 새 주기로 재시작
//   - Disarm: 어느 상태에서든 Stopped. 여러 번 호출해도 동일
//   - fired: fire 처리 후 repeat budget 차감. 0 이 되면 스스로 Stopped
//
// 다음 fire 는 이전 예정 시각 + period 로 잡는다. cycle 에 걸린 시간만큼
// 주기가 밀리지 않는다. 이미 지난 시각이면 바로 fire.
//
// budget 0 은 무제한이다. 감소 → 0 에 의한 정지는 양수로 설정된 경우에만 적용.
// reporter loop goroutine 에서만 사용한다.
type Timer struct {
	clock  clock.Clock
	timer  clock.Timer
	period time.Duration
	next   time.Time
	budget uint32
	state  TimerState
}

func NewTimer(c clock.Clock) *Timer {
	return &Timer{clock: c}
}

func (t *Timer) Arm(period time.Duration, budget uint32) {
	t.stop()

	t.period = period
	t.budget = budget
	t.state = Running
	t.next = t.clock.Now().Add(period)

	if t.timer == nil {
		t.timer = t.clock.NewTimer(period)
		return
	}
	t.timer.Reset(period)
}

func (t *Timer) Disarm() {
	t.stop()
	t.state = Stopped
}

// C 는 Running 일 때만 fire 채널을 반환한다. Stopped 면 nil (select 에서 영원히 대기).
func (t *Timer) C() <-chan time.Time {
	if t.state != Running || t.timer == nil {
		return nil
	}
	return t.timer.C()
}

func (t *Timer) State() TimerState { return t.state }

func (t *Timer) Period() time.Duration { return t.period }

func (t *Timer) Remaining() uint32 { return t.budget }

// fired 는 C() 에서 tick 을 받아 cycle 을 끝낸 뒤 호출한다.
// 다음 주기가 예약되면 true.
func (t *Timer) fired() bool {
	if t.state != Running {
		return false
	}

	if t.budget > 0 {
		t.budget--
		if t.budget == 0 {
			t.state = Stopped
			return false
		}
	}

	now := t.clock.Now()
	t.next = t.next.Add(t.period)
	if t.next.Before(now) {
		t.next = now
	}
	t.timer.Reset(t.next.Sub(now))
	return true
}

// stop: Stop 이 false 면 이미 발사된 tick 이 채널에 남아 있을 수 있으므로 비운다.
func (t *Timer) stop() {
	if t.timer == nil {
		return
	}
	if !t.timer.Stop() {
		select {
		case <-t.timer.C():
		default:
		}
	}
}
