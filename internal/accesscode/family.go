package accesscode

// Tag is the session-type flag carried by a code's suffix.
type Tag string

const (
	TagCheckIn Tag = "checkin"
	TagShort   Tag = "short"
	TagLong    Tag = "long"
)

const (
	prefixLen = 4
	fieldLen  = 12
	bodyLen   = 2 * fieldLen
)

// Family describes one deployed code format: a literal prefix and the
// allowed literal suffixes, each identifying a Tag.
type Family struct {
	Name     string
	Prefix   string
	Suffixes map[Tag]string
}

// CheckIn is the 32-character check-in code family.
var CheckIn = Family{
	Name:   "check-in",
	Prefix: "0176",
	Suffixes: map[Tag]string{
		TagCheckIn: "0198",
	},
}

// ReturnSession is the 33-character return-session code family. The last
// suffix character encodes the delay group.
var ReturnSession = Family{
	Name:   "return-session",
	Prefix: "8302",
	Suffixes: map[Tag]string{
		TagShort: "2153s",
		TagLong:  "2153l",
	},
}

// Families lists the deployed code families.
func Families() []Family {
	return []Family{CheckIn, ReturnSession}
}

// FamilyByName returns the family with the given name.
func FamilyByName(name string) (Family, bool) {
	for _, f := range Families() {
		if f.Name == name {
			return f, true
		}
	}
	return Family{}, false
}

// Length returns the total code length when suffix tag is used, or 0 if the
// family has no such tag.
func (f Family) Length(tag Tag) int {
	s, ok := f.Suffixes[tag]
	if !ok {
		return 0
	}
	return prefixLen + bodyLen + len(s)
}

// matchSuffix returns the tag whose literal suffix ends candidate.
func (f Family) matchSuffix(candidate string) (Tag, string, bool) {
	for tag, s := range f.Suffixes {
		if len(candidate) >= len(s) && candidate[len(candidate)-len(s):] == s {
			return tag, s, true
		}
	}
	return "", "", false
}
