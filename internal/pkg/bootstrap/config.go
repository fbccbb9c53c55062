// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config 是服务的完整配置。先读 YAML 文件，再用环境变量覆盖。
type Config struct {
	App    AppConfig    `yaml:"app"`
	Infra  InfraConfig  `yaml:"infra"`
	Triage TriageConfig `yaml:"triage"`
}

type AppConfig struct {
	Name      string `yaml:"name"`
	Port      int    `yaml:"port"`
	LogLevel  string `yaml:"logLevel"`
	TimeZone  string `yaml:"timeZone"`
	JWTSecret string `yaml:"jwtSecret"`
}

type InfraConfig struct {
	MySQL     MySQLConfig     `yaml:"mysql"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Jaeger    JaegerConfig    `yaml:"jaeger"`
	Zookeeper ZookeeperConfig `yaml:"zookeeper"`
	Nacos     NacosConfig     `yaml:"nacos"`
}

type MySQLConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	// AutoMigrate 启动时按 GORM 模型建表，只用于本地开发
	AutoMigrate bool `yaml:"autoMigrate"`
}

type RedisConfig struct {
	Addr          string        `yaml:"addr"`
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	SubmissionTTL time.Duration `yaml:"submissionTTL"`
}

type KafkaConfig struct {
	Brokers          []string `yaml:"brokers"`
	OrderEventsTopic string   `yaml:"orderEventsTopic"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type ZookeeperConfig struct {
	Servers        []string      `yaml:"servers"`
	SessionTimeout time.Duration `yaml:"sessionTimeout"`
	LockTimeout    time.Duration `yaml:"lockTimeout"`
}

type NacosConfig struct {
	ServerAddrs string `yaml:"serverAddrs"`
	Namespace   string `yaml:"namespace"`
	Group       string `yaml:"group"`
}

type TriageConfig struct {
	// RulesFile 为空时使用内置的默认规则
	RulesFile string `yaml:"rulesFile"`
}

var (
	currentConfig *Config
	configMu      sync.RWMutex
)

// DefaultConfig 返回本地开发用的默认值
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:     "storefront-service",
			Port:     8080,
			LogLevel: "info",
			TimeZone: "Asia/Seoul",
		},
		Infra: InfraConfig{
			MySQL: MySQLConfig{
				Host:            "localhost",
				Port:            3306,
				User:            "root",
				Database:        "storefront",
				MaxOpenConns:    20,
				MaxIdleConns:    10,
				ConnMaxLifetime: 30 * time.Minute,
			},
			Redis: RedisConfig{SubmissionTTL: 10 * time.Minute},
			Kafka: KafkaConfig{OrderEventsTopic: "order-events"},
			Zookeeper: ZookeeperConfig{
				SessionTimeout: 10 * time.Second,
				LockTimeout:    5 * time.Second,
			},
			Nacos: NacosConfig{Group: "DEFAULT_GROUP"},
		},
	}
}

// Load 读取配置：.env -> YAML 文件（可选）-> 环境变量覆盖
func Load(path string) (*Config, error) {
	// .env 不存在不是错误
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", path)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if cfg.App.JWTSecret == "" {
		return nil, errors.New("app.jwtSecret (JWT_SECRET) is required")
	}

	configMu.Lock()
	currentConfig = cfg
	configMu.Unlock()
	return cfg, nil
}

// GetCurrentConfig 返回最近一次 Load 的结果
func GetCurrentConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	if currentConfig == nil {
		return DefaultConfig()
	}
	return currentConfig
}

func applyEnv(cfg *Config) error {
	setString(&cfg.App.Name, "SERVICE_NAME")
	setString(&cfg.App.LogLevel, "LOG_LEVEL")
	setString(&cfg.App.TimeZone, "APP_TIMEZONE")
	setString(&cfg.App.JWTSecret, "JWT_SECRET")
	setString(&cfg.Infra.MySQL.Host, "MYSQL_HOST")
	setString(&cfg.Infra.MySQL.User, "MYSQL_USER")
	setString(&cfg.Infra.MySQL.Password, "MYSQL_PASSWORD")
	setString(&cfg.Infra.MySQL.Database, "MYSQL_DATABASE")
	setString(&cfg.Infra.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Infra.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Infra.Kafka.OrderEventsTopic, "KAFKA_ORDER_EVENTS_TOPIC")
	setString(&cfg.Infra.Jaeger.Endpoint, "JAEGER_ENDPOINT")
	setString(&cfg.Infra.Nacos.ServerAddrs, "NACOS_SERVER_ADDRS")
	setString(&cfg.Infra.Nacos.Namespace, "NACOS_NAMESPACE")
	setString(&cfg.Infra.Nacos.Group, "NACOS_GROUP")
	setString(&cfg.Triage.RulesFile, "TRIAGE_RULES_FILE")
	setList(&cfg.Infra.Kafka.Brokers, "KAFKA_BROKERS")
	setList(&cfg.Infra.Zookeeper.Servers, "ZOOKEEPER_SERVERS")

	if err := setInt(&cfg.App.Port, "PORT"); err != nil {
		return err
	}
	if err := setInt(&cfg.Infra.MySQL.Port, "MYSQL_PORT"); err != nil {
		return err
	}
	if err := setBool(&cfg.Infra.MySQL.AutoMigrate, "MYSQL_AUTO_MIGRATE"); err != nil {
		return err
	}
	return setInt(&cfg.Infra.Redis.DB, "REDIS_DB")
}

// getEnv 从环境变量中读取配置，不存在时返回 fallback
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func setString(dst *string, key string) {
	*dst = getEnv(key, *dst)
}

func setList(dst *[]string, key string) {
	v := getEnv(key, "")
	if v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) error {
	v := getEnv(key, "")
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return errors.Wrapf(err, "env %s must be an integer", key)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := getEnv(key, "")
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return errors.Wrapf(err, "env %s must be a boolean", key)
	}
	*dst = b
	return nil
}
