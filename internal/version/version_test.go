package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	v, c, d := Info()
	assert.NotEmpty(t, v)
	assert.NotEmpty(t, c)
	assert.NotEmpty(t, d)
}

func TestString(t *testing.T) {
	s := String()
	assert.True(t, strings.HasPrefix(s, "version="+GetVersion()))
	assert.Contains(t, s, "commit=")
}

func TestUserAgent(t *testing.T) {
	assert.Equal(t, "crm-console/"+GetVersion(), UserAgent())
}
