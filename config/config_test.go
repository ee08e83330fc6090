package config_test

import (
	"sort"
	"testing"

	"github.com/go-pluto/ceres/config"
	"github.com/stretchr/testify/assert"
)

// Functions

// TestLoadConfig executes a black-box test on the implemented
// functionalities to load a TOML config file.
func TestLoadConfig(t *testing.T) {

	// Try to load a broken config file. This should fail.
	_, err := config.LoadConfig("broken-config.toml")
	assert.NotNil(t, err, "expected fail while loading broken-config.toml but received nil error")

	// Now load a valid config.
	conf, err := config.LoadConfig("test-config.toml")
	assert.Nilf(t, err, "expected success while loading test-config.toml but received: %v", err)

	assert.Equal(t, 1500, conf.SendTimeoutMS)
	assert.Equal(t, 3, len(conf.Replicas))

	// Replicas are re-keyed under their node names.
	replica, found := conf.Replicas["n2"]
	assert.True(t, found, "expected replica to be addressable under its node name")
	assert.Equal(t, "127.0.0.1:8002", replica.APIAddr)
	assert.Equal(t, "Postgres", replica.StorageAdapter)
	assert.NotNil(t, replica.StoragePostgres)
	assert.Equal(t, uint16(5432), replica.StoragePostgres.Port)

	nodes := conf.Nodes()
	sort.Strings(nodes)
	assert.Equal(t, []string{"n1", "n2", "n3"}, nodes)

	addrs := conf.SyncAddrs()
	assert.Equal(t, 3, len(addrs))
	assert.Equal(t, "127.0.0.1:9003", addrs["n3"])
}

// TestLoadConfigMissingFile verifies the error for an absent
// config file.
func TestLoadConfigMissingFile(t *testing.T) {

	_, err := config.LoadConfig("no-such-config.toml")
	assert.NotNil(t, err, "expected fail while loading absent config file but received nil error")
}
