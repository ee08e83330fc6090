package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Constants

// DefaultSendTimeoutMS is used when the config file does not
// set a replication send timeout.
const DefaultSendTimeoutMS = 3000

// Structs

// Config holds all information parsed from supplied config
// file. One file describes the whole closed replica set, every
// node runs off the same file and picks its own section by
// name.
type Config struct {
	SendTimeoutMS int
	Replicas      map[string]Replica
}

// Replica contains the address and storage information for an
// individual ceres node.
type Replica struct {
	Name            string
	APIAddr         string
	ListenSyncAddr  string
	PublicSyncAddr  string
	PrometheusAddr  string
	StorageAdapter  string
	StoragePostgres *StoragePostgres
}

// StoragePostgres defines parameters for connecting to a
// PostgreSQL database holding the replica's records.
type StoragePostgres struct {
	IP       string
	Port     uint16
	Database string
	User     string
	Password string
	UseTLS   bool
}

// Functions

// LoadConfig takes in the path to the main config file of
// ceres in TOML syntax and places the values from the file in
// the corresponding struct.
func LoadConfig(configFile string) (*Config, error) {

	conf := new(Config)

	// Parse values from TOML file into struct.
	_, err := toml.DecodeFile(configFile, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read in TOML config file at '%s' with: %v", configFile, err)
	}

	if len(conf.Replicas) < 1 {
		return nil, fmt.Errorf("config file does not define any replica")
	}

	if conf.SendTimeoutMS == 0 {
		conf.SendTimeoutMS = DefaultSendTimeoutMS
	}

	if conf.SendTimeoutMS < 0 {
		return nil, fmt.Errorf("replication send timeout cannot be negative")
	}

	for key, replica := range conf.Replicas {

		if replica.Name == "" {
			return nil, fmt.Errorf("replica '%s' is missing its node name", key)
		}

		if replica.APIAddr == "" {
			return nil, fmt.Errorf("replica '%s' is missing its API address", replica.Name)
		}

		if (replica.ListenSyncAddr == "") || (replica.PublicSyncAddr == "") {
			return nil, fmt.Errorf("replica '%s' is missing a sync address", replica.Name)
		}

		switch replica.StorageAdapter {

		case "Memory":

		case "Postgres":
			if replica.StoragePostgres == nil {
				return nil, fmt.Errorf("replica '%s' selects the Postgres storage adapter but defines no StoragePostgres section", replica.Name)
			}

		default:
			return nil, fmt.Errorf("replica '%s' selects unknown storage adapter '%s'", replica.Name, replica.StorageAdapter)
		}

		// Re-key each replica under its node name so lookups
		// do not depend on the section labels in the file.
		delete(conf.Replicas, key)
		conf.Replicas[replica.Name] = replica
	}

	return conf, nil
}

// Nodes returns the names of all configured replicas, the
// closed node set the vector clocks run over.
func (conf *Config) Nodes() []string {

	nodes := make([]string, 0, len(conf.Replicas))
	for name := range conf.Replicas {
		nodes = append(nodes, name)
	}

	return nodes
}

// SyncAddrs returns the public sync plane address of every
// configured replica keyed by node name. Senders skip their
// own entry.
func (conf *Config) SyncAddrs() map[string]string {

	addrs := make(map[string]string, len(conf.Replicas))
	for name, replica := range conf.Replicas {
		addrs[name] = replica.PublicSyncAddr
	}

	return addrs
}
