package rows

// Wildcard is the option that stands for every resource or verb.
const Wildcard = "*"

// Select adds option to selected. The wildcard is exclusive: choosing it
// yields [wildcard], and choosing any option while the wildcard is selected
// replaces it. selected is not modified.
func Select(selected []string, option, wildcard string) []string {
	if option == wildcard || contains(selected, wildcard) {
		return []string{option}
	}
	if contains(selected, option) {
		return append([]string(nil), selected...)
	}
	out := make([]string, 0, len(selected)+1)
	out = append(out, selected...)
	return append(out, option)
}

// Deselect removes option from selected.
func Deselect(selected []string, option string) []string {
	out := make([]string, 0, len(selected))
	for _, s := range selected {
		if s != option {
			out = append(out, s)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
