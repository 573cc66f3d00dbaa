package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitStatements(t *testing.T) {
	script := `
		// leading comment
		CREATE INDEX a IF NOT EXISTS FOR (o:Object) ON (o.type);

		CREATE INDEX b IF NOT EXISTS FOR (o:Object) ON (o.id); // trailing
		;
	`
	assert.Equal(t, []string{
		"CREATE INDEX a IF NOT EXISTS FOR (o:Object) ON (o.type)",
		"CREATE INDEX b IF NOT EXISTS FOR (o:Object) ON (o.id)",
	}, splitStatements(script))
}

func TestSchemaSteps_AreIdempotent(t *testing.T) {
	for _, step := range schemaSteps {
		for _, stmt := range splitStatements(step.script) {
			assert.Contains(t, stmt, "IF NOT EXISTS", step.name)
		}
	}
}
