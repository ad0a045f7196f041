package discovery

import (
	"testing"

	"github.com/example/farmmarket/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInstance(t *testing.T) {
	inst, err := ParseInstance("farmmarket-api", "10.0.0.7:5000")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", inst.Host)
	assert.Equal(t, 5000, inst.Port)
	assert.Equal(t, "10.0.0.7:5000", inst.Addr())

	inst, err = ParseInstance("farmmarket-api", "[::1]:8080")
	require.NoError(t, err)
	assert.Equal(t, "::1", inst.Host)
	assert.Equal(t, "[::1]:8080", inst.Addr())

	for _, bad := range []string{"", "host-only", "host:http", "host:0", "host:70000"} {
		_, err := ParseInstance("x", bad)
		assert.Error(t, err, bad)
	}
}

func TestKeyLayout(t *testing.T) {
	sd := &ServiceDiscovery{config: &config.EtcdConfig{Prefix: "/farmmarket/services/"}}
	key := sd.key(&ServiceInstance{Name: "farmmarket-api", Host: "127.0.0.1", Port: 5000})
	assert.Equal(t, "/farmmarket/services/farmmarket-api/127.0.0.1:5000", key)
}
