// Package culprit works out who to blame for a build: the authors of every
// build since the last good one, or failing that, this build's change-set
// authors.
package culprit

import (
	"strings"

	"github.com/kart-io/buildnotify/pkg/build"
	"github.com/kart-io/buildnotify/pkg/users"
)

// Culprit is an author with a known phone number.
type Culprit struct {
	ID string
	users.Entry
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	// Source is "culprits" or "changeset", whichever supplied the ids.
	Source string
	// Raw is the id list as supplied by the build, before de-duplication.
	Raw []string
	// IDs is Raw de-duplicated, first occurrence kept.
	IDs []string
	// Notifiable holds the ids found in the directory, in IDs order.
	Notifiable []Culprit
	// Display joins the notifiable display names with JoinNames.
	Display string
}

// Resolve collects author ids from rec and maps them through dir.
func Resolve(rec build.Record, dir users.Directory) Resolution {
	res := Resolution{Source: "culprits", Raw: rec.Culprits()}
	if len(res.Raw) == 0 {
		res.Source = "changeset"
		res.Raw = rec.ChangeSetAuthors()
	}

	seen := make(map[string]struct{}, len(res.Raw))
	names := make([]string, 0, len(res.Raw))
	for _, id := range res.Raw {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		res.IDs = append(res.IDs, id)

		entry, ok := dir.Lookup(id)
		if !ok {
			continue
		}
		res.Notifiable = append(res.Notifiable, Culprit{ID: id, Entry: entry})
		names = append(names, entry.DisplayName)
	}
	res.Display = JoinNames(names)
	return res
}

// JoinNames joins names as "A", "A and B", "A B and C": a bare space between
// names, except " and " before the last one.
func JoinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], " ") + " and " + names[len(names)-1]
}
