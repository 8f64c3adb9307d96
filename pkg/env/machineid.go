// Package env provides what is shared by the environments of canlink
// processes.
package env

import (
	"crypto/sha256"
	"encoding/hex"
	"os"

	"github.com/denisbrodbeck/machineid"
)

// MachineID retrieves a short ID identifying the machine.
// It falls back to the host name when the machine ID is unavailable.
func MachineID() string {
	id, err := machineid.ProtectedID("canlink")
	if err != nil {
		if id, err = os.Hostname(); err != nil {
			panic(err)
		}
		return id
	}
	return ShortID(id)
}

// ShortID shortens a long ID to 12 hex digits.
func ShortID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:6])
}
