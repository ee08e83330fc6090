package config_test

import (
	"os"
	"testing"

	"github.com/go-pluto/ceres/config"
	"github.com/stretchr/testify/assert"
)

// Functions

// TestLoadEnv executes a black-box test on the implemented
// functionalities to load a .env file.
func TestLoadEnv(t *testing.T) {

	err := os.WriteFile(".env", []byte("CERES_DB_PASSWORD=works\n"), 0600)
	assert.Nilf(t, err, "expected nil error writing test .env file but received: %v", err)

	defer func() {
		_ = os.Remove(".env")
		_ = os.Unsetenv("CERES_DB_PASSWORD")
	}()

	env, err := config.LoadEnv()
	assert.Nilf(t, err, "expected nil error for LoadEnv() but received: %v", err)
	assert.Equal(t, "works", env.DBPassword)
}
