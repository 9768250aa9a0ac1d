package stubconfig

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path"

	"gopkg.in/yaml.v2"
)

const (
	configDir  string = ".gdbstub"
	configFile string = "config.yml"
)

// Config defines all configuration options available to be set through the
// config file.
type Config struct {
	// Listen is the address the stub listens on for a GDB client
	// connection, e.g. "localhost:2345".
	Listen string `yaml:"listen"`

	// Features are extra qSupported tokens advertised in addition to the
	// stub's built-in set (PacketSize, multiprocess, qXfer objects).
	Features []string `yaml:"features"`

	// Aliases maps a `gdbstub console` command's full name to abbreviations
	// the console accepts for it. qRcmd does not read this map.
	Aliases map[string][]string `yaml:"aliases"`

	// LogWire, LogDispatch, LogEvents mirror the pkg/logflags categories.
	// They are loaded and saved with the config file, but the gdbstub
	// command does not read them; categories are enabled only through
	// --log and --log-output.
	LogWire     bool `yaml:"log-wire"`
	LogDispatch bool `yaml:"log-dispatch"`
	LogEvents   bool `yaml:"log-events"`
}

// LoadConfig attempts to populate a Config object from config.yml,
// creating a default one if none exists yet.
func LoadConfig() *Config {
	if err := createConfigPath(); err != nil {
		fmt.Printf("Could not create config directory: %v.", err)
		return &Config{}
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		fmt.Printf("Unable to get config file path: %v.", err)
		return &Config{}
	}

	f, err := os.Open(fullConfigFile)
	if err != nil {
		f, err = createDefaultConfig(fullConfigFile)
		if err != nil {
			fmt.Printf("Error creating default config file: %v", err)
			return &Config{}
		}
	}
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Printf("Closing config file failed: %v.", err)
		}
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		fmt.Printf("Unable to read config data: %v.", err)
		return &Config{}
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		fmt.Printf("Unable to decode config file: %v.", err)
		return &Config{}
	}
	return &c
}

// SaveConfig marshals and saves the config struct to disk.
func SaveConfig(conf *Config) error {
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}
	f, err := os.Create(fullConfigFile)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(out)
	return err
}

func createDefaultConfig(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create config file: %v", err)
	}
	if err := writeDefaultConfig(f); err != nil {
		return nil, fmt.Errorf("unable to write default configuration: %v", err)
	}
	return f, nil
}

func writeDefaultConfig(f *os.File) error {
	_, err := f.WriteString(
		`# Configuration file for gdbstub.

# This is the default configuration file. Available options are provided,
# but disabled. Delete the leading hash mark to enable an item.

# Address the stub listens on for the GDB client.
# listen: "localhost:2345"

# Extra qSupported feature tokens to advertise, beyond the built-in set.
features:
  # - "qXfer:exec-file:read+"

# Abbreviations for 'gdbstub console' commands.
aliases:
  # help: ["h", "?"]

# log-wire: true
# log-dispatch: true
# log-events: true
`)
	return err
}

// createConfigPath creates the directory structure at which all config
// files are saved.
func createConfigPath() error {
	p, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(p, 0700)
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(file string) (string, error) {
	userHomeDir := "."
	usr, err := user.Current()
	if err == nil {
		userHomeDir = usr.HomeDir
	}
	return path.Join(userHomeDir, configDir, file), nil
}
