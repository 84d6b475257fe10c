package util

import (
	_ "embed"
	"fmt"
	"gopkg.in/yaml.v3"
	"log"
	"os"
	"strconv"
)

const Name = "streamnode"
const ConfigFileName = "config.yaml"

//go:embed config_default.yaml
var embeddedConfig []byte

// RemoteNodeConf describes one federated peer: where to reach it, the
// credentials we present to it, and the credentials it presents to us.
// The inbound password is stored as a bcrypt hash.
type RemoteNodeConf struct {
	URL            string `yaml:"url"`
	OutUsername    string `yaml:"outUsername"`
	OutPassword    string `yaml:"outPassword"`
	InUsername     string `yaml:"inUsername"`
	InPasswordHash string `yaml:"inPasswordHash"`
}

type AppConfig struct {
	Conf struct {
		Host         string
		HttpPort     int              `yaml:"httpPort"`
		NodeURL      string           `yaml:"nodeUrl"`
		FetchTimeout int              `yaml:"fetchTimeoutSec"`
		MaxFetches   int              `yaml:"maxConcurrentFetches"`
		Nodes        []RemoteNodeConf `yaml:"nodes"`
	}
}

func ReadConf() (*AppConfig, error) {

	c := &AppConfig{}

	// Try to resolve config file path (local first, then user dir)
	configPath := ResolveFilePath(ConfigFileName)

	var buf []byte
	var err error

	// Try to read from resolved path
	buf, err = os.ReadFile(configPath)
	if err != nil {
		// If file doesn't exist, use embedded config and create user config file
		log.Printf("Config file not found at %s, using embedded defaults", configPath)
		buf = embeddedConfig

		// Try to write default config to user config directory
		configDir, dirErr := GetConfigDir()
		if dirErr == nil {
			userConfigPath := configDir + "/" + ConfigFileName
			writeErr := os.WriteFile(userConfigPath, embeddedConfig, 0644)
			if writeErr != nil {
				log.Printf("Warning: could not write default config to %s: %v", userConfigPath, writeErr)
			} else {
				log.Printf("Created default config file at %s", userConfigPath)
			}
		}
	}

	err = yaml.Unmarshal(buf, c)
	if err != nil {
		return nil, fmt.Errorf("in config file: %w", err)
	}

	envHost := os.Getenv("STREAMNODE_HOST")
	envHttpPort := os.Getenv("STREAMNODE_HTTPPORT")
	envNodeURL := os.Getenv("STREAMNODE_NODEURL")
	envFetchTimeout := os.Getenv("STREAMNODE_FETCHTIMEOUT")

	if envHost != "" {
		c.Conf.Host = envHost
	}

	if envHttpPort != "" {
		v, err := strconv.Atoi(envHttpPort)
		if err != nil {
			fmt.Println(err)
		}
		c.Conf.HttpPort = v
	}

	if envNodeURL != "" {
		c.Conf.NodeURL = envNodeURL
	}

	if envFetchTimeout != "" {
		v, err := strconv.Atoi(envFetchTimeout)
		if err != nil {
			fmt.Println(err)
		}
		c.Conf.FetchTimeout = v
	}

	if c.Conf.FetchTimeout <= 0 {
		c.Conf.FetchTimeout = 5
	}

	if c.Conf.MaxFetches <= 0 {
		c.Conf.MaxFetches = 8
	}

	return c, nil
}
