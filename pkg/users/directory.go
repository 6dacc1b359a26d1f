// Package users maps build-system author identifiers to the people behind
// them: a display name and a phone number to text.
package users

import "strings"

// Entry is one person known to the notifier.
type Entry struct {
	DisplayName string
	Phone       string
}

// Directory maps author identifiers to entries.
type Directory map[string]Entry

// ParseUserList parses "id:phone:displayName" records separated by commas.
// Records without three non-empty fields are dropped; extra fields are
// ignored. Fields are used verbatim, without trimming. A later record with
// the same id replaces an earlier one.
func ParseUserList(text string) Directory {
	dir := make(Directory)
	for _, record := range strings.Split(text, ",") {
		fields := strings.Split(record, ":")
		if len(fields) < 3 {
			continue
		}
		id, phone, name := fields[0], fields[1], fields[2]
		if id == "" || phone == "" || name == "" {
			continue
		}
		dir[id] = Entry{DisplayName: name, Phone: phone}
	}
	return dir
}

// Lookup returns the entry for id.
func (d Directory) Lookup(id string) (Entry, bool) {
	e, ok := d[id]
	return e, ok
}
