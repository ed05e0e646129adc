package proctoring

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Monitor accumulates proctoring counters for one quiz session.
type Monitor struct {
	mu        sync.Mutex
	platform  Platform
	opts      Options
	state     State
	detachers map[int]func()
	nextID    int
}

func NewMonitor(platform Platform, opts Options) *Monitor {
	if opts.WarningTTL <= 0 {
		opts.WarningTTL = DefaultWarningTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Monitor{
		platform:  platform,
		opts:      opts,
		detachers: make(map[int]func()),
	}
}

// Attach subscribes the monitor to src. The returned function detaches it;
// calling it more than once is harmless.
func (m *Monitor) Attach(src Source) func() {
	unsubscribe := src.Subscribe(m.Handle)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	var once sync.Once
	detach := func() {
		once.Do(func() {
			unsubscribe()
			m.mu.Lock()
			delete(m.detachers, id)
			m.mu.Unlock()
		})
	}
	m.detachers[id] = detach
	m.mu.Unlock()

	return detach
}

// Activate starts observing and asks the platform for fullscreen. A refused
// request is logged and remembered; it never fails the session.
func (m *Monitor) Activate() {
	m.mu.Lock()
	m.state.Active = true
	platform := m.platform
	m.mu.Unlock()

	if platform == nil {
		return
	}
	if err := platform.RequestFullscreen(); err != nil {
		log.Printf("Fullscreen request failed: %v", err)
		m.mu.Lock()
		m.state.FullscreenDenied = true
		m.mu.Unlock()
	}
}

// Close stops observing and detaches every attached source.
func (m *Monitor) Close() {
	m.mu.Lock()
	m.state.Active = false
	detachers := make([]func(), 0, len(m.detachers))
	for _, d := range m.detachers {
		detachers = append(detachers, d)
	}
	m.mu.Unlock()

	for _, d := range detachers {
		d()
	}
}

// Handle applies one event. Events arriving while inactive are ignored.
func (m *Monitor) Handle(ev Event) Response {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.Now()
	m.pruneLocked(now)

	if !m.state.Active {
		return Response{}
	}

	if ev.Kind.clipboard() {
		return Response{PreventDefault: true, Warning: m.warnLocked(ev.Kind, now)}
	}

	switch ev.Kind {
	case EventVisibility:
		if ev.Hidden {
			m.state.Counters.TabSwitches++
			return Response{Warning: m.warnLocked(ev.Kind, now)}
		}

	case EventFullscreen:
		if ev.Fullscreen {
			m.state.InFullscreen = true
			m.state.EnteredFullscreen = true
			m.state.FullscreenDenied = false
			return Response{}
		}
		if m.state.InFullscreen && m.state.EnteredFullscreen {
			m.state.InFullscreen = false
			m.state.Counters.FullScreenExits++
			return Response{Warning: m.warnLocked(ev.Kind, now)}
		}
		m.state.InFullscreen = false

	case EventFullscreenError:
		log.Printf("Fullscreen request denied by client: %s", ev.Detail)
		m.state.FullscreenDenied = true

	case EventWebcam:
		if ev.Granted {
			m.state.Counters.WebcamEnabled = true
		} else {
			log.Printf("Webcam permission denied: %s", ev.Detail)
		}

	default:
		log.Debugf("Ignoring unknown proctoring event %q", ev.Kind)
	}
	return Response{}
}

func (m *Monitor) warnLocked(kind EventKind, now time.Time) *Warning {
	w := Warning{
		Kind:      kind,
		Message:   warningMessages[kind],
		IssuedAt:  now,
		ExpiresAt: now.Add(m.opts.WarningTTL),
	}
	m.state.Warnings = append(m.state.Warnings, w)
	return &w
}

func (m *Monitor) pruneLocked(now time.Time) {
	kept := m.state.Warnings[:0]
	for _, w := range m.state.Warnings {
		if !w.Expired(now) {
			kept = append(kept, w)
		}
	}
	m.state.Warnings = kept
}

// ActiveWarnings returns the warnings still on screen at now.
func (m *Monitor) ActiveWarnings(now time.Time) []Warning {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(now)
	return append([]Warning(nil), m.state.Warnings...)
}

// Blocked reports whether interaction must wait behind the re-enter
// fullscreen prompt.
func (m *Monitor) Blocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Active && m.opts.RequireFullscreen &&
		!m.state.InFullscreen && !m.state.FullscreenDenied
}

func (m *Monitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Active
}

func (m *Monitor) Counters() Counters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Counters
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state
	s.Warnings = append([]Warning(nil), m.state.Warnings...)
	return s
}

// Restore replaces the monitor's state. Attached sources are kept.
func (m *Monitor) Restore(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	m.state.Warnings = append([]Warning(nil), s.Warnings...)
}
