package txn

import "strconv"

// Version is the optimistic version of a row. The zero value is NoVersion
// and stands for unversioned data.
type Version struct {
	N     int64
	Valid bool
}

// NoVersion marks unversioned data.
var NoVersion = Version{}

// V returns a valid Version n.
func V(n int64) Version { return Version{N: n, Valid: true} }

// Less reports whether v is an older version than o.
// Unversioned values are never ordered.
func (v Version) Less(o Version) bool {
	return v.Valid && o.Valid && v.N < o.N
}

// Equal reports whether both versions are valid and equal, or both absent.
func (v Version) Equal(o Version) bool {
	if !v.Valid || !o.Valid {
		return v.Valid == o.Valid
	}
	return v.N == o.N
}

// Next returns the version that follows v.
func (v Version) Next() Version {
	if !v.Valid {
		return V(0)
	}
	return V(v.N + 1)
}

func (v Version) String() string {
	if !v.Valid {
		return "<unversioned>"
	}
	return strconv.FormatInt(v.N, 10)
}
