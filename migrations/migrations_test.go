package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUp(t *testing.T) {
	migrations, err := Up()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	assert.Equal(t, "001_init.up.sql", migrations[0].Name)
	for _, m := range migrations {
		assert.True(t, strings.HasSuffix(m.Name, ".up.sql"), m.Name)
		assert.NotContains(t, m.SQL, "DROP TABLE")
	}
}
