package broker

import (
	"strings"

	"github.com/gofrs/uuid"
)

// RoomName returns the trimmed requested name or a new one
// made of the prefix and 8 random hex chars.
func RoomName(requested, prefix string) (string, error) {
	if name := strings.TrimSpace(requested); name != "" {
		return name, nil
	}
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return prefix + strings.ReplaceAll(id.String(), "-", "")[:8], nil
}
