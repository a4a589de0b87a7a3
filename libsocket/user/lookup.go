// Package user resolves the owner of unix socket files. Names are looked up
// in the passwd and group databases; numeric ids are accepted as is.
package user

import (
	"fmt"
	"strconv"

	"github.com/moby/sys/user"
	"github.com/sirupsen/logrus"
)

// LookupUID returns the uid of the named user. s may also be a numeric uid.
func LookupUID(s string) (int, error) {
	u, err := user.LookupUser(s)
	if err == nil {
		logrus.Debugf("found user %s with uid %d", s, u.Uid)
		return u.Uid, nil
	}
	id, perr := parseID(s)
	if perr != nil {
		return -1, fmt.Errorf("unknown user %q: %w", s, err)
	}
	return id, nil
}

// LookupGID returns the gid of the named group. s may also be a numeric gid.
func LookupGID(s string) (int, error) {
	g, err := user.LookupGroup(s)
	if err == nil {
		logrus.Debugf("found group %s with gid %d", s, g.Gid)
		return g.Gid, nil
	}
	id, perr := parseID(s)
	if perr != nil {
		return -1, fmt.Errorf("unknown group %q: %w", s, err)
	}
	return id, nil
}

func parseID(s string) (int, error) {
	// (uid_t)-1 means "unchanged" to chown(2) and is not a valid id.
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 1<<32-1 {
		return -1, fmt.Errorf("invalid id %q", s)
	}
	return int(id), nil
}
