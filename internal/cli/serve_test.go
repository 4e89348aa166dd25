package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServeScope(t *testing.T) {
	a := serveScope([]string{"db:one.db", "report:abc"})

	assert.Equal(t, a, serveScope([]string{"db:one.db", "report:abc"}))
	assert.NotEqual(t, a, serveScope([]string{"db:two.db", "report:abc"}))
	assert.NotEqual(t, a, serveScope([]string{"report:abc", "db:one.db"}))
	assert.Contains(t, a, "serve:")
}
