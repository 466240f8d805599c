package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerSettings configures the game server process
type ServerSettings struct {
	Name         string        `json:"name" mapstructure:"name"`
	Port         uint          `json:"port" mapstructure:"port"`
	HTTPPort     int           `json:"httpPort" mapstructure:"httpPort"`
	TickRate     int           `json:"tickRate" mapstructure:"tickRate"`
	PollInterval time.Duration `json:"pollInterval" mapstructure:"pollInterval"`
}

// LogSettings configures logging output
type LogSettings struct {
	Level string `json:"level" mapstructure:"level"`
	Dir   string `json:"dir" mapstructure:"dir"`
}

// StorageSettings selects the persistence backend: memory, sqlite or postgres
type StorageSettings struct {
	Driver     string `json:"driver" mapstructure:"driver"`
	SqlitePath string `json:"sqlitePath" mapstructure:"sqlitePath"`
}

// DBSettings holds postgres connection values
type DBSettings struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// Settings is the process configuration read by Load
type Settings struct {
	Server  ServerSettings  `json:"server" mapstructure:"server"`
	Log     LogSettings     `json:"log" mapstructure:"log"`
	Storage StorageSettings `json:"storage" mapstructure:"storage"`
	DB      DBSettings      `json:"db" mapstructure:"db"`
}

// ConfigName is the file Load looks for, without extension.
const ConfigName = "carball"

// Load reads carball.json from configDir (if present), applies CARBALL_*
// environment overrides and returns the merged settings. A missing file is
// not an error; a malformed one is.
func Load(configDir string) (Settings, error) {
	v := viper.New()

	v.SetDefault("server.name", "carball")
	v.SetDefault("server.port", 7373)
	v.SetDefault("server.httpPort", 8080)
	v.SetDefault("server.tickRate", Net.TickRate)
	v.SetDefault("server.pollInterval", "4ms")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "")

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.sqlitePath", "./carball.db")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.username", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.database", "carball")

	v.SetEnvPrefix("CARBALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(ConfigName)
	v.SetConfigType("json")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	if s.Server.TickRate <= 0 {
		return Settings{}, fmt.Errorf("invalid tick rate %d", s.Server.TickRate)
	}
	return s, nil
}
