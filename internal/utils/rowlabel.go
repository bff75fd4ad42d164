package utils

import "strings"

// IndexToRowLabel converts a zero-based index to an alphabetical row label like A, B, AA
func IndexToRowLabel(i int) string {
    if i < 0 { // negative indices are invalid
        return ""
    }
    res := []rune{} // accumulate runes for the label
    for {
        rem := i % 26
        res = append(res, rune('A'+rem))
        i = i/26 - 1
        if i < 0 {
            break
        }
    }
    for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 { // reverse the runes to build the label
        res[j], res[k] = res[k], res[j]
    }
    return string(res)
}

// RowLabelToIndex converts a row label like A or AA into its zero-based index
func RowLabelToIndex(label string) (int, bool) {
    s := strings.ToUpper(strings.TrimSpace(label))
    if s == "" {
        return -1, false
    }
    n := 0
    for i := 0; i < len(s); i++ {
        ch := s[i]
        if ch < 'A' || ch > 'Z' { // only ASCII A-Z are valid
            return -1, false
        }
        n = n*26 + int(ch-'A'+1) // accumulate base26 representation
    }
    return n - 1, true
}

// NormalizeRowLabel strips non ASCII letters and converts to uppercase
func NormalizeRowLabel(raw string) string {
    var b strings.Builder
    for _, r := range raw {
        if r >= 'a' && r <= 'z' {
            b.WriteRune(r - 32)
        } else if r >= 'A' && r <= 'Z' {
            b.WriteRune(r)
        } // ignore all other characters
    }
    return b.String()
}
