package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	CORS       CORSConfig
	Monitoring MonitoringConfig
	Logging    LoggingConfig
	Results    ResultsConfig
	Import     ImportConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	DSN      string
}

type CORSConfig struct {
	Origins []string
}

type MonitoringConfig struct {
	PrometheusEnabled bool
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ResultsConfig struct {
	PassThreshold float64
	RankCutoff    int
}

type ImportConfig struct {
	MaxFileSizeMB    int
	HeaderSearchRows int
}

// MaxFileSize is the upload limit in bytes.
func (c ImportConfig) MaxFileSize() int64 {
	return int64(c.MaxFileSizeMB) << 20
}

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

func Load() (*Config, error) {
	godotenv.Load()

	driver := strings.ToLower(getEnv("DB_DRIVER", DriverPostgres))
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", defaultPort(driver))
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "")
	dbName := getEnv("DB_NAME", "school_system")

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Driver:   driver,
			Host:     dbHost,
			Port:     dbPort,
			User:     dbUser,
			Password: dbPass,
			Name:     dbName,
			DSN:      getEnv("DATABASE_URL", buildDSN(driver, dbHost, dbPort, dbUser, dbPass, dbName)),
		},
		CORS: CORSConfig{
			Origins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		},
		Monitoring: MonitoringConfig{
			PrometheusEnabled: getEnv("PROMETHEUS_ENABLED", "true") == "true",
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Results: ResultsConfig{
			PassThreshold: getEnvFloat("RESULT_PASS_THRESHOLD", 33),
			RankCutoff:    getEnvInt("RESULT_RANK_CUTOFF", 10),
		},
		Import: ImportConfig{
			MaxFileSizeMB:    getEnvInt("IMPORT_MAX_FILE_SIZE_MB", 10),
			HeaderSearchRows: getEnvInt("IMPORT_HEADER_SEARCH_ROWS", 20),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Driver != DriverPostgres && c.Database.Driver != DriverMySQL {
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMySQL, c.Database.Driver)
	}
	if c.Results.PassThreshold <= 0 || c.Results.PassThreshold > 100 {
		return fmt.Errorf("RESULT_PASS_THRESHOLD must be within (0, 100], got %v", c.Results.PassThreshold)
	}
	if c.Results.RankCutoff <= 0 {
		return fmt.Errorf("RESULT_RANK_CUTOFF must be positive, got %d", c.Results.RankCutoff)
	}
	if c.Import.MaxFileSizeMB <= 0 {
		return fmt.Errorf("IMPORT_MAX_FILE_SIZE_MB must be positive, got %d", c.Import.MaxFileSizeMB)
	}
	if c.Import.HeaderSearchRows <= 0 {
		return fmt.Errorf("IMPORT_HEADER_SEARCH_ROWS must be positive, got %d", c.Import.HeaderSearchRows)
	}
	return nil
}

func defaultPort(driver string) string {
	if driver == DriverMySQL {
		return "3306"
	}
	return "5432"
}

func buildDSN(driver, host, port, user, pass, name string) string {
	if driver == DriverMySQL {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			user, pass, host, port, name)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, pass, name)
}

func splitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
