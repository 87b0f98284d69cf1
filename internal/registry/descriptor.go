package registry

import "fmt"

// Status is the availability state of a registered module.
type Status int

const (
	// StatusUnknown means availability has not been checked yet.
	StatusUnknown Status = iota
	// StatusReady means the module library is available.
	StatusReady
	// StatusInaccessible means the availability check failed.
	StatusInaccessible
	// StatusHeadlessOnly marks modules without a user interface. They are
	// loadable by name but never offered for user selection.
	StatusHeadlessOnly
	// StatusInvalid marks descriptors whose configuration is inconsistent.
	StatusInvalid
)

var statusNames = map[Status]string{
	StatusUnknown:      "unknown",
	StatusReady:        "ready",
	StatusInaccessible: "inaccessible",
	StatusHeadlessOnly: "headless",
	StatusInvalid:      "invalid",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText renders the status as its lowercase name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name produced by MarshalText.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown module status %q", text)
}

// Descriptor is the static metadata of a known module, independent of
// whether its library has been loaded.
type Descriptor struct {
	// Name is the internal module name and the registry primary key.
	Name string `json:"name"`

	// Title is the user-visible name. Empty for headless modules.
	Title string `json:"title,omitempty"`

	// Library is the platform-neutral library identifier. Defaults to Name.
	Library string `json:"library"`

	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`

	// Displayer optionally names the module that displays objects on behalf
	// of this one.
	Displayer string `json:"displayer,omitempty"`

	// Version is filled at most once, from configuration or from the first
	// library that reports one.
	Version string `json:"version,omitempty"`

	Status Status `json:"status"`
}

// VersionEntry is one row of the version report.
type VersionEntry struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}
