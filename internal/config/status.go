package config

// Status is the reported state of one configured server.
type Status string

const (
	StatusConnected Status = "connected"
	StatusDisabled  Status = "disabled"
	StatusFailed    Status = "failed"
)

// ClassifyStatus derives a status for every configured server from the set of
// servers that actually connected. Disabled wins over connected.
func ClassifyStatus(configured map[string]*Server, connected map[string]struct{}) map[string]Status {
	out := make(map[string]Status, len(configured))
	for name, srv := range configured {
		switch {
		case !srv.IsEnabled():
			out[name] = StatusDisabled
		case has(connected, name):
			out[name] = StatusConnected
		default:
			out[name] = StatusFailed
		}
	}
	return out
}

func has(set map[string]struct{}, name string) bool {
	_, ok := set[name]
	return ok
}
