// Package ugid resolves user and group names to numeric ids using the
// account database of the install target.
package ugid

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

// Resolver maps user and group names to ids.
type Resolver struct {
	users  map[string]int
	groups map[string]int
}

// Fallback returns a resolver that only knows root.
func Fallback() *Resolver {
	return &Resolver{
		users:  map[string]int{"root": 0},
		groups: map[string]int{"root": 0},
	}
}

// Load reads <root>/etc/passwd and <root>/etc/group from fsys.
//
// If either file cannot be read, Load returns the Fallback resolver along
// with the error; the caller is expected to warn and carry on.
func Load(fsys afero.Fs, root string) (*Resolver, error) {
	users, uerr := readTable(fsys, filepath.Join(root, "etc", "passwd"))
	groups, gerr := readTable(fsys, filepath.Join(root, "etc", "group"))
	if err := multierr.Append(uerr, gerr); err != nil {
		return Fallback(), err
	}
	return &Resolver{users: users, groups: groups}, nil
}

// readTable parses colon separated lines whose third field is the id.
// Lines without a numeric id are skipped.
func readTable(fsys afero.Fs, path string) (map[string]int, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read account database: %w", err)
	}
	defer f.Close()

	table := make(map[string]int)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Split(sc.Text(), ":")
		if len(fields) < 3 || fields[0] == "" {
			continue
		}
		id, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		table[fields[0]] = id
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read account database %s: %w", path, err)
	}
	return table, nil
}

// IDs returns the uid and gid for the names. ok is false if either is unknown.
func (r *Resolver) IDs(user, group string) (uid, gid int, ok bool) {
	uid, uok := r.users[user]
	gid, gok := r.groups[group]
	return uid, gid, uok && gok
}
