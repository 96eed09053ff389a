package client

// VoiceWidget abstracts the embedded voice/chat widget the browser client
// falls back to when a session comes back mock. Implementations wrap the
// actual vendor widget; tests and headless callers use NopWidget.
type VoiceWidget interface {
	// IsAvailable reports whether the widget can be shown at all.
	IsAvailable() bool

	// Open shows the widget with an introductory message.
	Open(message string)

	// Close hides the widget.
	Close()
}

// NopWidget reports unavailable and ignores all widget operations.
type NopWidget struct{}

func (NopWidget) IsAvailable() bool { return false }

func (NopWidget) Open(string) {}

func (NopWidget) Close() {}
