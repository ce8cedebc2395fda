package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFlags_Overrides(t *testing.T) {
	orig := os.Args
	os.Args = []string{"testbin", "-a", ":7000", "-d", "postgres://x", "-e", "production", "-b", "https://auth.example.com", "-t", "5", "-r", "60"}
	t.Cleanup(func() { os.Args = orig })

	c := validConfig()
	parseFlags(c)

	assert.Equal(t, ":7000", c.EndpointAddrHTTP)
	assert.Equal(t, "postgres://x", c.DatabaseDSN)
	assert.Equal(t, EnvProduction, c.Environment)
	assert.Equal(t, "https://auth.example.com", c.AppBaseURL)
	assert.Equal(t, 5*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 60*time.Minute, c.RefreshTokenValidityDuration)
}

func TestParseFlags_UnknownFlagsIgnored(t *testing.T) {
	orig := os.Args
	os.Args = []string{"testbin", "-z", "1", "--unknown=2"}
	t.Cleanup(func() { os.Args = orig })

	c := validConfig()
	parseFlags(c)

	assert.Equal(t, ":5000", c.EndpointAddrHTTP)
}
