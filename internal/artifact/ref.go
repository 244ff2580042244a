package artifact

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/pricelab/basiccleaning/internal/database"
)

// Ref references an artifact version as name[:alias]. The alias is
// either an explicit version such as "v2" or a symbolic alias such as
// "latest", which is the default.
type Ref struct {
	Name  string
	Alias string
}

// ParseRef parses an artifact reference. Invalid references fail with
// an error such that errors.Is(err, ErrNotFound).
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	name, alias, found := strings.Cut(s, ":")
	if !found {
		alias = database.AliasLatest
	}
	if err := validateName(name); err != nil {
		return Ref{}, errors.Wrapf(ErrNotFound, "invalid reference %q: %s", s, err.Error())
	}
	if alias == "" || strings.Contains(alias, ":") {
		return Ref{}, errors.Wrapf(ErrNotFound, "invalid reference %q: bad alias", s)
	}
	return Ref{Name: name, Alias: alias}, nil
}

// String implements fmt.Stringer.
func (r Ref) String() string {
	return r.Name + ":" + r.Alias
}

func validateName(name string) error {
	switch {
	case name == "":
		return errors.New("empty name")
	case strings.ContainsAny(name, `:/\`):
		return errors.New("name contains a reserved character")
	case name == "." || name == "..":
		return errors.New("name is a relative path")
	}
	return nil
}
