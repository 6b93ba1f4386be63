// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Mock     MockConfig     `mapstructure:"mock"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// StorageConfig 存储持久化相关的配置。
type StorageConfig struct {
	// Driver 选择键值存储驱动："file" 或 "redis"。
	Driver string `mapstructure:"driver"`
	// FilePath 是 file 驱动使用的存储文件路径。
	FilePath string `mapstructure:"file_path"`
	// MessageBackend 选择聊天记录的后端："kv" 或 "mysql"。
	MessageBackend string `mapstructure:"message_backend"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储访问令牌相关的配置。
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	// SessionTTLMinutes 是会话（及其令牌）的有效期，单位分钟。
	SessionTTLMinutes int `mapstructure:"session_ttl_minutes"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。登录态变更事件的发布是可选能力，
// 由 Enabled 开关控制。
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// MockConfig 存储模拟外部服务的行为参数。
type MockConfig struct {
	// 各操作的模拟延迟，单位毫秒。测试中置 0。
	SignUpDelayMs    int `mapstructure:"signup_delay_ms"`
	SignInDelayMs    int `mapstructure:"signin_delay_ms"`
	OAuthDelayMs     int `mapstructure:"oauth_delay_ms"`
	ResponderDelayMs int `mapstructure:"responder_delay_ms"`
	// 模拟第三方登录返回的固定身份。
	OAuthEmail    string `mapstructure:"oauth_email"`
	OAuthFullName string `mapstructure:"oauth_full_name"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}
