// Package pattern detects weak local structure in a single password.
package pattern

// Kind identifies which rule an issue came from.
type Kind int

const (
	Repeat Kind = iota
	Ascending
	Walk
)

func (k Kind) String() string {
	switch k {
	case Repeat:
		return "repeat"
	case Ascending:
		return "ascending"
	case Walk:
		return "keyboard-walk"
	default:
		return "unknown"
	}
}

// Walks are the keyboard-walk fragments matched case-insensitively.
var Walks = [...]string{"qwert", "asdfg", "zxcvb", "12345", "qazws", "!@#$%"}

// Issue is one matched window. Overlapping windows are reported separately.
type Issue struct {
	Kind   Kind
	Offset int
	Length int
}

// Find returns every issue in pw in rule order.
func Find(pw []byte) []Issue {
	var issues []Issue
	for i := 0; i+2 < len(pw); i++ {
		if pw[i] == pw[i+1] && pw[i+1] == pw[i+2] {
			issues = append(issues, Issue{Kind: Repeat, Offset: i, Length: 3})
		}
	}
	for i := 0; i+2 < len(pw); i++ {
		if int(pw[i])+1 == int(pw[i+1]) && int(pw[i+1])+1 == int(pw[i+2]) {
			issues = append(issues, Issue{Kind: Ascending, Offset: i, Length: 3})
		}
	}
	for _, walk := range Walks {
		for i := 0; i+len(walk) <= len(pw); i++ {
			if matchFold(pw[i:i+len(walk)], walk) {
				issues = append(issues, Issue{Kind: Walk, Offset: i, Length: len(walk)})
			}
		}
	}
	return issues
}

// Scan returns the number of issues in pw.
func Scan(pw []byte) int {
	return len(Find(pw))
}

// matchFold folds only A-Z in window; walk is already lowercase.
func matchFold(window []byte, walk string) bool {
	for j := 0; j < len(walk); j++ {
		c := window[j]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != walk[j] {
			return false
		}
	}
	return true
}
