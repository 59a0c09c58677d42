// Package confparser consumes a configuration file (and any files it
// recursively includes) into an ordered Assignment list, per the grammar:
//
//	name [=] value
//	name.class_suffix [=] value
//	include 'path'
package confparser

import "strings"

// Assignment is one surviving name/value directive.
type Assignment struct {
	Name       string
	Value      string
	Filename   string
	SourceLine int
}

// ClassPrefix returns the class prefix of a qualified name ("myapp" for
// "myapp.flag") and whether the name is qualified at all.
func (a Assignment) ClassPrefix() (string, bool) {
	for i := 0; i < len(a.Name); i++ {
		if a.Name[i] == '.' {
			return a.Name[:i], true
		}
	}
	return "", false
}

// WhitelistSetting is the distinguished setting name governing which class
// prefixes are acceptable on qualified names.
const WhitelistSetting = "custom_variable_classes"

// List is an ordered Assignment sequence with a distinguished head slot: if
// an assignment for WhitelistSetting exists, it is always first, regardless
// of where it appeared in the source file.
type List struct {
	items []Assignment
	// headSet records whether items[0] holds the whitelist assignment.
	headSet bool
}

// Head returns the whitelist assignment and true if one was seen.
func (l *List) Head() (Assignment, bool) {
	if l.headSet {
		return l.items[0], true
	}
	return Assignment{}, false
}

// Items returns every assignment in commit order: the whitelist item (if
// any) first, then the rest in file order.
func (l *List) Items() []Assignment {
	return l.items
}

// Len reports how many assignments are in the list.
func (l *List) Len() int {
	return len(l.items)
}

// Append adds a into the list, honoring the head-slot invariant: a
// duplicate WhitelistSetting replaces the current head rather than
// appending, and any other duplicate is appended in order (last one wins
// at commit, per the data model's stated resolution rule).
func (l *List) Append(a Assignment) {
	if strings.EqualFold(a.Name, WhitelistSetting) {
		if l.headSet {
			l.items[0] = a
			return
		}
		l.items = append([]Assignment{a}, l.items...)
		l.headSet = true
		return
	}
	l.items = append(l.items, a)
}
