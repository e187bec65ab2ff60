package security

import (
	"regexp"

	"safegate/internal/domain"
)

const maxIdentifierLength = 128

var identifierRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateQuery blocks any statement that mentions a write keyword anywhere
// in its text, including string literals and comments. False positives are
// accepted over false negatives.
func (e *Engine) ValidateQuery(sql string) domain.ValidationOutcome {
	if kw, ok := e.store.MatchSQLKeyword(sql); ok {
		e.logger.Warn("query BLOCKED: write keyword", "keyword", kw)
		return domain.Block(domain.ReasonWriteOperation, kw)
	}
	return domain.Allow(sql)
}

// ValidateIdentifier restricts table and column names to [A-Za-z0-9_] so they
// can be interpolated into schema and sample lookups.
func (e *Engine) ValidateIdentifier(name string) domain.ValidationOutcome {
	if len(name) == 0 || len(name) > maxIdentifierLength || !identifierRe.MatchString(name) {
		e.logger.Warn("identifier BLOCKED", "name", name)
		return domain.Block(domain.ReasonInvalidTableName, identifierRe.String())
	}
	return domain.Allow(name)
}
