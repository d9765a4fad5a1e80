package endpoints

import "fmt"

// legacyAlias maps a historical flat endpoint key onto its (category, name)
// pair. Kept as a plain table - call sites written against the old flat
// naming scheme delegate entirely to ResolvePath.
type legacyAlias struct {
	category string
	name     string
}

var legacyAliases = map[string]legacyAlias{
	"ISSUES_LIST":      {"issues", "list"},
	"ISSUES_SEARCH":    {"issues", "search"},
	"ISSUE_DETAIL":     {"issue", "detail"},
	"ISSUE_UPDATE":     {"issue", "update"},
	"ISSUE_EVENTS":     {"issue", "events"},
	"PROJECTS_LIST":    {"projects", "list"},
	"ALERT_RULES_LIST": {"alerts", "rules"},
}

// ResolveLegacy resolves a historical uppercase endpoint key such as
// "ISSUES_LIST" to a concrete path. Returns ErrUnknownLegacyKey for keys
// with no alias mapping.
func (r *Registry) ResolveLegacy(key string, params map[string]string) (string, error) {
	alias, ok := legacyAliases[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLegacyKey, key)
	}
	return r.ResolvePath(alias.category, alias.name, params)
}
