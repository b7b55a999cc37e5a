package backend

import "encoding/json"

// Device is one entry of the backend device list.
type Device struct {
	UDID         string  `json:"udId"         yaml:"udid"`
	Name         string  `json:"name"         yaml:"name"`
	Model        string  `json:"model"        yaml:"model"`
	Platform     string  `json:"platform"     yaml:"platform"`
	Version      string  `json:"version"      yaml:"version"`
	CPU          string  `json:"cpu"          yaml:"cpu,omitempty"`
	Size         string  `json:"size"         yaml:"size,omitempty"`
	Manufacturer string  `json:"manufacturer" yaml:"manufacturer,omitempty"`
	Status       string  `json:"status"       yaml:"status,omitempty"`
	IsHm         bool    `json:"isHm"         yaml:"isHm,omitempty"`
	Level        int     `json:"level"        yaml:"level,omitempty"`
	Voltage      float64 `json:"voltage"      yaml:"voltage,omitempty"`
	Temperature  float64 `json:"temperature"  yaml:"temperature,omitempty"`
}

// DeviceInfo is the detail view of a single iOS device.
type DeviceInfo struct {
	CPUArchitecture string `json:"cpu_architecture" yaml:"cpuArchitecture"`
	DeviceName      string `json:"device_name"      yaml:"deviceName"`
	DevicePlatform  string `json:"device_platform"  yaml:"devicePlatform"`
	DeviceSerialNo  string `json:"device_serialno"  yaml:"deviceSerialNo"`
	WDAPort         int    `json:"wda_port"         yaml:"wdaPort,omitempty"`
	Version         string `json:"version"          yaml:"version"`
}

// App is an installed application.
type App struct {
	BundleID       string `json:"CFBundleIdentifier"         yaml:"bundleId"`
	Name           string `json:"CFBundleName"               yaml:"name"`
	ShortVersion   string `json:"CFBundleShortVersionString" yaml:"version"`
	BundleVersion  string `json:"CFBundleVersion,omitempty"  yaml:"build,omitempty"`
	ExecutableName string `json:"ExecutableName,omitempty"   yaml:"executable,omitempty"`
	Icon           string `json:"Icon,omitempty"             yaml:"-"`
}

// AndroidApp is an installed Android package.
type AndroidApp struct {
	PackageName string `json:"packageName"           yaml:"package"`
	Label       string `json:"label,omitempty"       yaml:"label,omitempty"`
	VersionName string `json:"versionName,omitempty" yaml:"version,omitempty"`
	VersionCode string `json:"versionCode,omitempty" yaml:"build,omitempty"`
	System      bool   `json:"system,omitempty"      yaml:"system,omitempty"`
}

// Process is a running process. The backend passes the instruments
// process list through unchanged.
type Process struct {
	PID           int    `json:"Pid"           yaml:"pid"`
	Name          string `json:"Name"          yaml:"name"`
	RealAppName   string `json:"RealAppName"   yaml:"realAppName,omitempty"`
	IsApplication bool   `json:"IsApplication" yaml:"isApplication"`
	StartDate     string `json:"StartDate"     yaml:"startDate,omitempty"`
}

// App list kinds accepted by ListApps.
const (
	AppsUser        = "user"
	AppsAll         = "all"
	AppsSystem      = "system"
	AppsFileSharing = "filesharingapps"
)

// Platforms accepted by ListDevices.
const (
	PlatformAll     = ""
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

// Event is one server-sent event. Name is "message" when the stream did not
// name it; perf streams name events after the metric type.
type Event struct {
	Name string `json:"event"`
	ID   string `json:"id,omitempty"`
	Data string `json:"data"`
}

// PerfSample is the common header of a performance event payload.
type PerfSample struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Msg       string `json:"msg,omitempty"`
}

// SystemMemory is the payload of a "sys_mem" perf event.
type SystemMemory struct {
	PerfSample
	AppMemory   int64 `json:"app_memory"`
	FreeMemory  int64 `json:"free_memory"`
	UsedMemory  int64 `json:"used_memory"`
	WiredMemory int64 `json:"wired_memory"`
	CachedFiles int64 `json:"cached_files"`
	Compressed  int64 `json:"compressed"`
	SwapUsed    int64 `json:"swap_used"`
}

// DecodePerf parses a perf event payload header.
func DecodePerf(e Event) (PerfSample, error) {
	var s PerfSample
	err := json.Unmarshal([]byte(e.Data), &s)
	return s, err
}
