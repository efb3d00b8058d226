package domain

import "strings"

// referencedTable reports the table a column named like <name>_id points to,
// trying the plural, bare and -es forms of <name> against tables. A table
// never references itself.
func referencedTable(column, table string, tables map[string]bool) (string, bool) {
	if !strings.HasSuffix(column, "_id") {
		return "", false
	}
	prefix := strings.TrimSuffix(column, "_id")
	if prefix == "" {
		return "", false
	}
	for _, candidate := range []string{prefix + "s", prefix, prefix + "es"} {
		if candidate != table && tables[candidate] {
			return candidate, true
		}
	}
	return "", false
}
