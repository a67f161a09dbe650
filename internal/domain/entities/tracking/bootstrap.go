package tracking

// DefaultStoragePrefix prefixes every key the engine persists in browser storage.
const DefaultStoragePrefix = "anticipater"

// Settings is the operator's tracking configuration document.
type Settings struct {
	Enabled   Flag              `json:"enabled" yaml:"enabled"`
	DebugMode Flag              `json:"debug_mode" yaml:"debug_mode"`
	Events    []EventDefinition `json:"events" yaml:"events"`
}

// EnabledEvents returns the definitions that are switched on, in order.
func (s Settings) EnabledEvents() []EventDefinition {
	out := make([]EventDefinition, 0, len(s.Events))
	for _, e := range s.Events {
		if e.Enabled {
			out = append(out, e)
		}
	}
	return out
}

// Bootstrap is the initialization input handed to the engine once per page view.
type Bootstrap struct {
	Events        []EventDefinition `json:"events"`
	Debug         bool              `json:"debug"`
	SinkURL       string            `json:"sinkUrl,omitempty"`
	Token         string            `json:"token,omitempty"`
	UTM           Attribution       `json:"utm"`
	StoragePrefix string            `json:"storagePrefix,omitempty"`
}

// Prefix returns the storage prefix, the default when unset.
func (b *Bootstrap) Prefix() string {
	if b == nil || b.StoragePrefix == "" {
		return DefaultStoragePrefix
	}
	return b.StoragePrefix
}

// LogEntry is one event recorded by the debug log sink.
type LogEntry struct {
	ID        string `json:"id"`
	EventName string `json:"eventName"`
	EventData string `json:"eventData"`
	PageURL   string `json:"pageUrl"`
	UserAgent string `json:"userAgent"`
	IPAddress string `json:"ipAddress"`
	CreatedAt string `json:"createdAt"`
}

// SinkRecord is one debug record posted to the log sink.
type SinkRecord struct {
	EventName string
	EventData string
	PageURL   string
	Token     string
}

// LogFilter narrows a debug log listing. Field matches entries whose
// event data carries that top-level key.
type LogFilter struct {
	Event string
	Field string
	Limit int
}
