// Package credential acquires room access credentials from the session broker.
package credential

// Credential holds everything needed to connect to a conference room.
// A Credential is only valid when all of its fields are set.
type Credential struct {
	AccessToken  string
	SessionName  string
	TransportURL string
}

func (c Credential) IsValid() bool {
	return c.AccessToken != "" && c.SessionName != "" && c.TransportURL != ""
}

// missing lists the names of the absent fields.
func (c Credential) missing() (fields []string) {
	if c.AccessToken == "" {
		fields = append(fields, "token")
	}
	if c.SessionName == "" {
		fields = append(fields, "room_name")
	}
	if c.TransportURL == "" {
		fields = append(fields, "ws_url")
	}
	return
}
