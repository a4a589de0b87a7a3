package unixfs

import (
	"github.com/opencontainers/socketrun/internal/linux"
)

// Owner is the ownership and permissions of a bound socket file.
type Owner struct {
	Mode uint32
	// Chown is set when UID and GID were requested explicitly.
	Chown    bool
	UID, GID int
}

// SetOwner applies o to the socket file at path. It must be called after
// bind, which creates the file.
func SetOwner(path string, o Owner) error {
	if o.Chown {
		if err := linux.Lchown(path, o.UID, o.GID); err != nil {
			return err
		}
	}
	return linux.Chmod(path, o.Mode)
}
