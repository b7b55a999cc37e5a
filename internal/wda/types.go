package wda

// Capabilities are passed verbatim to POST /session.
type Capabilities map[string]any

// Session is an open WDA session and the capabilities WDA reported for it.
type Session struct {
	ID           string         `json:"sessionId"    yaml:"session_id"`
	Capabilities map[string]any `json:"capabilities" yaml:"capabilities,omitempty"`
}

// StatusInfo is the value of GET /status.
type StatusInfo struct {
	Message string `json:"message" yaml:"message"`
	State   string `json:"state"   yaml:"state"`
	OS      struct {
		Name    string `json:"name"    yaml:"name"`
		Version string `json:"version" yaml:"version"`
	} `json:"os" yaml:"os"`
	IOS struct {
		SimulatorVersion string `json:"simulatorVersion,omitempty" yaml:"simulatorVersion,omitempty"`
		IP               string `json:"ip,omitempty"               yaml:"ip,omitempty"`
	} `json:"ios" yaml:"ios"`
	Build struct {
		Time string `json:"time" yaml:"time"`
	} `json:"build" yaml:"build"`
	Ready bool `json:"ready" yaml:"ready"`
}

// AppInfo describes the foreground application.
type AppInfo struct {
	BundleID         string `json:"bundleId" yaml:"bundleId"`
	Name             string `json:"name"     yaml:"name"`
	PID              int    `json:"pid"      yaml:"pid"`
	ProcessArguments struct {
		Env  map[string]string `json:"env"  yaml:"env"`
		Args []string          `json:"args" yaml:"args"`
	} `json:"processArguments" yaml:"processArguments"`
}

// WindowSize is the logical screen size in device points.
type WindowSize struct {
	Width  float64 `json:"width"  yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// LaunchOptions are the optional fields of an app launch request.
type LaunchOptions struct {
	Arguments               []string          `json:"arguments"`
	Environment             map[string]string `json:"environment"`
	ShouldWaitForQuiescence bool              `json:"shouldWaitForQuiescence"`
}

// Hardware button names accepted by PressButton.
const (
	ButtonHome       = "home"
	ButtonVolumeUp   = "volumeUp"
	ButtonVolumeDown = "volumeDown"
)

// ValidButton reports whether name is a button WDA can press.
func ValidButton(name string) bool {
	switch name {
	case ButtonHome, ButtonVolumeUp, ButtonVolumeDown:
		return true
	}
	return false
}

// envelope is the common WDA response shape.
type envelope[T any] struct {
	Value     T      `json:"value"`
	SessionID string `json:"sessionId"`
}
