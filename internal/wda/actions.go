package wda

// Step types in a pointer action sequence.
const (
	StepPointerMove = "pointerMove"
	StepPointerDown = "pointerDown"
	StepPointerUp   = "pointerUp"
	StepPause       = "pause"
)

// Default gesture timings in milliseconds.
const (
	DefaultLongPressMS = 1500
	DefaultDragMS      = 500
	settlePauseMS      = 300
	releasePauseMS     = 10
)

// Step is one entry of a pointer action sequence. Only moves carry
// coordinates; they are always serialized, zero included.
type Step struct {
	Type     string   `json:"type"               yaml:"type"`
	X        *float64 `json:"x,omitempty"        yaml:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"        yaml:"y,omitempty"`
	Duration *int     `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// ActionParameters describes the input source.
type ActionParameters struct {
	PointerType string `json:"pointerType" yaml:"pointerType"`
}

// Action is a W3C pointer input source with its steps.
type Action struct {
	ID         string           `json:"id"         yaml:"id"`
	Type       string           `json:"type"       yaml:"type"`
	Parameters ActionParameters `json:"parameters" yaml:"parameters"`
	Actions    []Step           `json:"actions"    yaml:"actions"`
}

func move(x, y float64) Step { return Step{Type: StepPointerMove, X: &x, Y: &y} }

func moveFor(x, y float64, ms int) Step {
	s := move(x, y)
	s.Duration = &ms
	return s
}

func pause(ms int) Step { return Step{Type: StepPause, Duration: &ms} }

func finger(steps ...Step) Action {
	return Action{
		ID:         "finger-0",
		Type:       "pointer",
		Parameters: ActionParameters{PointerType: "touch"},
		Actions:    steps,
	}
}

// TapAction presses and releases at (x, y).
func TapAction(x, y float64) Action {
	return finger(move(x, y), Step{Type: StepPointerDown}, Step{Type: StepPointerUp})
}

// LongPressAction holds at (x, y) for ms milliseconds (DefaultLongPressMS when <= 0).
func LongPressAction(x, y float64, ms int) Action {
	if ms <= 0 {
		ms = DefaultLongPressMS
	}
	return finger(move(x, y), Step{Type: StepPointerDown}, pause(ms), Step{Type: StepPointerUp})
}

// SwipeAction moves from (x1, y1) to (x2, y2) with the touch held down.
func SwipeAction(x1, y1, x2, y2 float64) Action {
	return finger(
		move(x1, y1),
		Step{Type: StepPointerDown},
		pause(settlePauseMS),
		move(x2, y2),
		pause(releasePauseMS),
		Step{Type: StepPointerUp},
	)
}

// DragAction is a swipe whose second move lasts ms milliseconds
// (DefaultDragMS when <= 0).
func DragAction(x1, y1, x2, y2 float64, ms int) Action {
	if ms <= 0 {
		ms = DefaultDragMS
	}
	return finger(
		move(x1, y1),
		Step{Type: StepPointerDown},
		pause(settlePauseMS),
		moveFor(x2, y2, ms),
		pause(releasePauseMS),
		Step{Type: StepPointerUp},
	)
}
