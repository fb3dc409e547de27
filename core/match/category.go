package match

import (
	"strings"

	"github.com/helperlink/dispatch/core/model"
)

// CategoryRule is a named predicate deciding whether a helper's category list
// covers a request category. The rules deliberately favour recall over
// precision: missing a qualified helper costs more than one extra push.
type CategoryRule struct {
	Name  string
	Match func(cat model.Category, helperCats []string) bool
}

// CategoryRules returns the ordered rule set. Matching is a boolean OR over
// all rules; the order only determines which rule name annotates the
// candidate.
func CategoryRules() []CategoryRule {
	return []CategoryRule{
		{Name: "exact_id", Match: func(cat model.Category, cats []string) bool {
			return contains(cats, cat.ID)
		}},
		{Name: "parent_id", Match: func(cat model.Category, cats []string) bool {
			return cat.ParentID != "" && contains(cats, cat.ParentID)
		}},
		{Name: "slug", Match: func(cat model.Category, cats []string) bool {
			if cat.Slug == "" {
				return false
			}
			for _, c := range cats {
				if strings.EqualFold(c, cat.Slug) {
					return true
				}
			}
			return false
		}},
		{Name: "slug_prefix", Match: func(cat model.Category, cats []string) bool {
			seg := firstSegment(cat.Slug)
			if seg == "" {
				return false
			}
			for _, c := range cats {
				if strings.HasPrefix(strings.ToLower(c), seg) {
					return true
				}
			}
			return false
		}},
		{Name: "name_substring", Match: func(cat model.Category, cats []string) bool {
			word := firstWord(cat.Name)
			if word == "" {
				return false
			}
			for _, c := range cats {
				if strings.Contains(strings.ToLower(c), word) {
					return true
				}
			}
			return false
		}},
	}
}

// MatchCategory evaluates all rules and returns whether any matched along
// with the name of the first matching rule.
func MatchCategory(cat model.Category, helperCats []string) (bool, string) {
	for _, r := range CategoryRules() {
		if r.Match(cat, helperCats) {
			return true, r.Name
		}
	}
	return false, ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func firstSegment(slug string) string {
	slug = strings.ToLower(slug)
	if i := strings.IndexAny(slug, "-_"); i > 0 {
		return slug[:i]
	}
	return slug
}

func firstWord(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
