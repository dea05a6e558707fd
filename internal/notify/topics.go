package notify

// Topics builds the MQTT topics under a common prefix.
type Topics struct {
	Prefix string
}

// Status carries the retained online/offline presence of the daemon.
func (t Topics) Status() string { return t.Prefix + "/status" }

// CaptureResult carries one CaptureEvent per finished capture.
func (t Topics) CaptureResult() string { return t.Prefix + "/capture/result" }
