package proctoring

import "time"

// EventKind names the browser event the client forwarded.
type EventKind string

const (
	EventVisibility      EventKind = "visibilitychange"
	EventFullscreen      EventKind = "fullscreenchange"
	EventFullscreenError EventKind = "fullscreenerror"
	EventCopy            EventKind = "copy"
	EventPaste           EventKind = "paste"
	EventCut             EventKind = "cut"
	EventWebcam          EventKind = "webcam"
)

func (k EventKind) Valid() bool {
	switch k {
	case EventVisibility, EventFullscreen, EventFullscreenError,
		EventCopy, EventPaste, EventCut, EventWebcam:
		return true
	}
	return false
}

func (k EventKind) clipboard() bool {
	return k == EventCopy || k == EventPaste || k == EventCut
}

// Event is one platform notification. Only the field matching Kind is read:
// Hidden for visibility changes, Fullscreen for fullscreen changes, Granted
// for the webcam permission check.
type Event struct {
	Kind       EventKind `json:"type" binding:"required"`
	Hidden     bool      `json:"hidden,omitempty"`
	Fullscreen bool      `json:"fullscreen,omitempty"`
	Granted    bool      `json:"granted,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	At         time.Time `json:"at,omitempty"`
}

// Response tells the source what to do with the event.
type Response struct {
	PreventDefault bool     `json:"preventDefault"`
	Warning        *Warning `json:"warning,omitempty"`
}

type Warning struct {
	Kind      EventKind `json:"kind"`
	Message   string    `json:"message"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (w Warning) Expired(now time.Time) bool {
	return !now.Before(w.ExpiresAt)
}

type Counters struct {
	TabSwitches     int  `json:"tabSwitches"`
	FullScreenExits int  `json:"fullScreenExits"`
	WebcamEnabled   bool `json:"webcamEnabled"`
}

// State is everything a Monitor needs to resume on another request.
type State struct {
	Active            bool      `json:"active"`
	Counters          Counters  `json:"counters"`
	InFullscreen      bool      `json:"inFullscreen"`
	EnteredFullscreen bool      `json:"enteredFullscreen"`
	FullscreenDenied  bool      `json:"fullscreenDenied"`
	Warnings          []Warning `json:"warnings,omitempty"`
}

// Handler reacts to a single event.
type Handler func(Event) Response

// Source delivers platform events until the returned function is called.
type Source interface {
	Subscribe(handler Handler) (unsubscribe func())
}

// Platform is the part of the host the monitor can ask things of.
type Platform interface {
	RequestFullscreen() error
}

type Options struct {
	WarningTTL        time.Duration
	RequireFullscreen bool
	Now               func() time.Time
}

const DefaultWarningTTL = 3 * time.Second

var warningMessages = map[EventKind]string{
	EventVisibility: "Leaving the quiz tab is recorded.",
	EventFullscreen: "Exiting fullscreen is recorded. Return to fullscreen to continue.",
	EventCopy:       "Copying is disabled during the quiz.",
	EventPaste:      "Pasting is disabled during the quiz.",
	EventCut:        "Cutting is disabled during the quiz.",
}
