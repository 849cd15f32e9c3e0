// Package config loads process-scoped UTIM configuration once at startup
// into an immutable record, per the design notes' "load once, pass by
// reference" guidance. It reads an INI file (env var UTIM_CONFIG, default
// config.ini) with gopkg.in/ini.v1, plus the hex-encoded master key from
// UTIM_MASTER_KEY.
package config

import (
	"encoding/hex"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

const (
	configPathEnvVar = "UTIM_CONFIG"
	defaultPath      = "config.ini"
	masterKeyEnvVar  = "UTIM_MASTER_KEY"
)

// Protocol is the Uhost messaging transport selected by configuration.
type Protocol string

const (
	ProtocolMQTT  Protocol = "mqtt"
	ProtocolAMQP  Protocol = "amqp"
	ProtocolUMQTT Protocol = "umqtt"
)

// Broker holds the connection parameters for whichever messaging protocol
// section the [UTIM] section names.
type Broker struct {
	Hostname      string
	Username      string
	Password      string
	ReconnectTime int
}

// Config is the immutable, fully-resolved UTIM process configuration.
type Config struct {
	UtimName          string
	UhostName         string
	MessagingProtocol Protocol
	Broker            Broker
	MasterKey         []byte
}

// Load reads the INI file named by UTIM_CONFIG (default config.ini) and the
// hex master key named by UTIM_MASTER_KEY. Any missing key or invalid hex is
// a fatal startup error, per the configuration error-handling policy.
func Load() (*Config, error) {
	path := os.Getenv(configPathEnvVar)
	if path == "" {
		path = defaultPath
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: reading %s", path)
	}

	utimSection, err := file.GetSection("UTIM")
	if err != nil {
		return nil, errors.Wrap(err, "config: missing [UTIM] section")
	}

	utimName, err := requireKey(utimSection, "utimname")
	if err != nil {
		return nil, err
	}
	uhostName, err := requireKey(utimSection, "uhostname")
	if err != nil {
		return nil, err
	}
	protocolValue, err := requireKey(utimSection, "messaging_protocol")
	if err != nil {
		return nil, err
	}
	protocol := Protocol(protocolValue)

	brokerSection, err := file.GetSection(protocolValue)
	if err != nil {
		return nil, errors.Wrapf(err, "config: missing [%s] broker section", protocolValue)
	}

	hostname, err := requireKey(brokerSection, "hostname")
	if err != nil {
		return nil, err
	}
	username, err := requireKey(brokerSection, "username")
	if err != nil {
		return nil, err
	}
	password, err := requireKey(brokerSection, "password")
	if err != nil {
		return nil, err
	}

	reconnectValue, err := requireKey(brokerSection, "reconnect_time")
	if err != nil {
		return nil, err
	}
	reconnectTime, err := strconv.Atoi(reconnectValue)
	if err != nil {
		return nil, errors.Wrapf(err, "config: reconnect_time %q is not an integer", reconnectValue)
	}

	masterKey, err := masterKeyFromEnv()
	if err != nil {
		return nil, err
	}

	return &Config{
		UtimName:          utimName,
		UhostName:         uhostName,
		MessagingProtocol: protocol,
		Broker: Broker{
			Hostname:      hostname,
			Username:      username,
			Password:      password,
			ReconnectTime: reconnectTime,
		},
		MasterKey: masterKey,
	}, nil
}

func requireKey(section *ini.Section, name string) (string, error) {
	if !section.HasKey(name) {
		return "", errors.Errorf("config: missing key %q in section [%s]", name, section.Name())
	}
	v := section.Key(name).String()
	if v == "" {
		return "", errors.Errorf("config: empty value for key %q in section [%s]", name, section.Name())
	}
	return v, nil
}

func masterKeyFromEnv() ([]byte, error) {
	hexKey := os.Getenv(masterKeyEnvVar)
	if hexKey == "" {
		return nil, errors.Errorf("config: %s is not set", masterKeyEnvVar)
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, errors.Wrapf(err, "config: %s is not valid hex", masterKeyEnvVar)
	}
	return key, nil
}
