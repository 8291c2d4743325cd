package database

import (
	"strings"
	"testing"
)

func TestIndexes_ActiveStartIsPartialUnique(t *testing.T) {
	for _, idx := range indexes {
		if idx.name != ActiveStartIndex {
			continue
		}
		q := idx.query
		if !strings.Contains(q, "UNIQUE INDEX") || !strings.Contains(q, "status <> 'cancelled'") || !strings.Contains(q, "deleted_at IS NULL") {
			t.Errorf("active start index must be unique over live rows only: %s", q)
		}
		return
	}
	t.Fatalf("index %s not declared", ActiveStartIndex)
}
