package directory

import (
	"strings"
)

// MaxCandidates caps the candidate list offered during mention composition.
const MaxCandidates = 10

type User struct {
	ID        string `json:"id"`
	Rank      string `json:"rank,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (u User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Directory is the read-only list of addressable users. Listing order is
// stable and search results preserve it.
type Directory struct {
	users []User
	byID  map[string]User
}

func New(users []User) *Directory {
	byID := make(map[string]User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return &Directory{
		users: users,
		byID:  byID,
	}
}

func (d *Directory) Users() []User {
	out := make([]User, len(d.users))
	copy(out, d.users)
	return out
}

func (d *Directory) Lookup(id string) (User, bool) {
	u, ok := d.byID[id]
	return u, ok
}

// Search returns up to MaxCandidates users whose rank, first name, last
// name, or full concatenation contains the query, case-insensitively.
func (d *Directory) Search(query string) []User {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []User
	for _, u := range d.users {
		if q == "" || matches(u, q) {
			out = append(out, u)
			if len(out) == MaxCandidates {
				break
			}
		}
	}
	return out
}

func matches(u User, q string) bool {
	full := strings.TrimSpace(u.Rank + " " + u.FirstName + " " + u.LastName)
	return strings.Contains(strings.ToLower(u.Rank), q) ||
		strings.Contains(strings.ToLower(u.FirstName), q) ||
		strings.Contains(strings.ToLower(u.LastName), q) ||
		strings.Contains(strings.ToLower(full), q)
}
