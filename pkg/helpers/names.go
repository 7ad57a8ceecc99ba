// Package helpers - Account name and memo syntax validation.
package helpers

// MaxAccountNameLen is the maximum length of an on-chain account name.
const MaxAccountNameLen = 12

// MaxMemoLen is the maximum byte length of a transfer memo.
const MaxMemoLen = 256

// IsValidAccountName reports whether s is a syntactically valid account name:
// 1-12 characters from the set a-z, 1-5 and '.', with no leading or
// trailing dot.
func IsValidAccountName(s string) bool {
	if len(s) == 0 || len(s) > MaxAccountNameLen {
		return false
	}
	if s[0] == '.' || s[len(s)-1] == '.' {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '1' && c <= '5':
		case c == '.':
		default:
			return false
		}
	}
	return true
}

// IsValidMemo reports whether a memo fits on-chain size limits.
func IsValidMemo(s string) bool {
	return len(s) <= MaxMemoLen
}
