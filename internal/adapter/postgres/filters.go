package postgres

import (
	"fmt"
	"strings"

	"github.com/guillermoBallester/sqlmine/internal/core/domain"
)

// quoteIdent quotes a SQL identifier to prevent injection.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteQualified quotes each dot-separated part of a possibly
// schema-qualified name. Surrounding quotes on a part are stripped first.
func quoteQualified(name string) (string, error) {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		p = domain.Unquote(strings.TrimSpace(p))
		if p == "" || strings.ContainsRune(p, 0) {
			return "", fmt.Errorf("%w: %q", domain.ErrInvalidIdentifier, name)
		}
		parts[i] = quoteIdent(p)
	}
	return strings.Join(parts, "."), nil
}
