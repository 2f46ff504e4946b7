package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Neo4j   Neo4jConfig
	SQLite  SQLiteConfig
	Redis   RedisConfig
	Data    DataConfig
	Report  ReportConfig
	Logging LoggingConfig
}

type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

// DataConfig points at the clickstream files the pipeline reads and writes.
type DataConfig struct {
	CSVPath    string
	JSONPath   string
	SubsetPath string
	UserCap    int
}

type ReportConfig struct {
	TopProducts  int
	TopCustomers int
	TopPaths     int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/ecom-graph")

	viper.SetEnvPrefix("ECOMGRAPH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.password", "password")
	viper.SetDefault("neo4j.database", "neo4j")

	viper.SetDefault("sqlite.path", "./data/ecomgraph.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttlSec", 600)

	viper.SetDefault("data.csvPath", "./data/ecommerce_clickstream_transactions.csv")
	viper.SetDefault("data.jsonPath", "./data/ecommerce_all.json")
	viper.SetDefault("data.subsetPath", "./data/ecommerce_subset.json")
	viper.SetDefault("data.userCap", 300)

	viper.SetDefault("report.topProducts", 3)
	viper.SetDefault("report.topCustomers", 5)
	viper.SetDefault("report.topPaths", 10)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
