package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the service configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ServiceBus ServiceBusConfig
	Elastic    ElasticConfig
	MQTT       MQTTConfig
	NewRelic   NewRelicConfig
	Scanner    ScannerConfig
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port int
	Mode string // debug, release, test
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
	TTL      time.Duration
}

// ServiceBusConfig holds the Azure Service Bus configuration
type ServiceBusConfig struct {
	ConnectionString string
	QueueName        string
}

// ElasticConfig holds the Elasticsearch configuration
type ElasticConfig struct {
	URL      string
	Username string
	Password string
	Index    string
	Enabled  bool
}

// MQTTConfig holds the device ingestion broker configuration
type MQTTConfig struct {
	Broker    string
	ClientID  string
	Username  string
	Password  string
	ScanTopic string
	Enabled   bool
}

// NewRelicConfig holds the New Relic configuration
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// ScannerConfig holds the scan log settings
type ScannerConfig struct {
	// Capacity is the number of scan events retained per account
	Capacity      int
	FlushInterval time.Duration
}

// InitConfig initializes the configuration using Viper
func InitConfig(cfgFile string) error {
	// .env is optional
	_ = godotenv.Load()

	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/rfid-service")
		viper.SetConfigName("config")
	}

	// RFID_SERVER_PORT overrides server.port
	viper.SetEnvPrefix("RFID")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("No config file found, using defaults and environment variables")
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8092)
	viper.SetDefault("server.mode", "release")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "rfid")
	viper.SetDefault("database.password", "rfid")
	viper.SetDefault("database.dbname", "rfid_service_db")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.ttl", "5m")

	// no default connection string; an empty one selects the logging client
	viper.SetDefault("servicebus.queuename", "rfid-scans")

	viper.SetDefault("elastic.url", "http://localhost:9200")
	viper.SetDefault("elastic.index", "rfid-scans")
	viper.SetDefault("elastic.enabled", false)

	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.clientid", "rfid-service")
	viper.SetDefault("mqtt.scantopic", "rfid/+/scan")
	viper.SetDefault("mqtt.enabled", false)

	viper.SetDefault("newrelic.appname", "RFID Scan Service Local")
	viper.SetDefault("newrelic.enabled", false)

	viper.SetDefault("scanner.capacity", 100)
	viper.SetDefault("scanner.flushinterval", "10s")
}

// Load loads the configuration
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("server.port"),
			Mode: viper.GetString("server.mode"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("database.host"),
			Port:     viper.GetInt("database.port"),
			User:     viper.GetString("database.user"),
			Password: viper.GetString("database.password"),
			DBName:   viper.GetString("database.dbname"),
			SSLMode:  viper.GetString("database.sslmode"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("redis.host"),
			Port:     viper.GetInt("redis.port"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
			Enabled:  viper.GetBool("redis.enabled"),
			TTL:      viper.GetDuration("redis.ttl"),
		},
		ServiceBus: ServiceBusConfig{
			ConnectionString: viper.GetString("servicebus.connectionstring"),
			QueueName:        viper.GetString("servicebus.queuename"),
		},
		Elastic: ElasticConfig{
			URL:      viper.GetString("elastic.url"),
			Username: viper.GetString("elastic.username"),
			Password: viper.GetString("elastic.password"),
			Index:    viper.GetString("elastic.index"),
			Enabled:  viper.GetBool("elastic.enabled"),
		},
		MQTT: MQTTConfig{
			Broker:    viper.GetString("mqtt.broker"),
			ClientID:  viper.GetString("mqtt.clientid"),
			Username:  viper.GetString("mqtt.username"),
			Password:  viper.GetString("mqtt.password"),
			ScanTopic: viper.GetString("mqtt.scantopic"),
			Enabled:   viper.GetBool("mqtt.enabled"),
		},
		NewRelic: NewRelicConfig{
			AppName:    viper.GetString("newrelic.appname"),
			LicenseKey: viper.GetString("newrelic.licensekey"),
			Enabled:    viper.GetBool("newrelic.enabled"),
		},
		Scanner: ScannerConfig{
			Capacity:      viper.GetInt("scanner.capacity"),
			FlushInterval: viper.GetDuration("scanner.flushinterval"),
		},
	}

	if cfg.Scanner.Capacity < 1 {
		return nil, fmt.Errorf("scanner.capacity must be at least 1, got %d", cfg.Scanner.Capacity)
	}
	if cfg.Scanner.FlushInterval <= 0 {
		return nil, fmt.Errorf("scanner.flushinterval must be positive, got %s", cfg.Scanner.FlushInterval)
	}

	return cfg, nil
}
