package bundle

// Precedence is the tier a bundle was loaded from.  Higher values are more
// specific and shadow lower ones.
type Precedence int

const (
	Application Precedence = iota
	User
	Project
)

// NumPrecedences is the number of tiers.
const NumPrecedences = 3

// Precedences lists the tiers from least to most specific.
var Precedences = [NumPrecedences]Precedence{Application, User, Project}

func (p Precedence) String() string {
	switch p {
	case Application:
		return "application"
	case User:
		return "user"
	case Project:
		return "project"
	}
	return "unknown"
}

// ParsePrecedence is the inverse of Precedence.String.
func ParsePrecedence(s string) (Precedence, bool) {
	for _, p := range Precedences {
		if p.String() == s {
			return p, true
		}
	}
	return 0, false
}

func (p Precedence) valid() bool {
	return p >= Application && p <= Project
}
