package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Session   SessionConfig   `mapstructure:"session"`
	Auth      AuthConfig      `mapstructure:"auth"`
	OSS       OSSConfig       `mapstructure:"oss"`
	Email     EmailConfig     `mapstructure:"email"`
	Queue     QueueConfig     `mapstructure:"queue"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Planner   PlannerConfig   `mapstructure:"planner"`
	PlanStore PlanStoreConfig `mapstructure:"plan_store"`
	Cleanup   CleanupConfig   `mapstructure:"cleanup"`
	Log       LogConfig       `mapstructure:"log"`
	Upload    UploadConfig    `mapstructure:"upload"`
}

type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Mode          string `mapstructure:"mode"`
	AppURL        string `mapstructure:"app_url"`        // 邮件链接使用的对外地址
	OnboardingURL string `mapstructure:"onboarding_url"` // 邮箱验证成功后的跳转地址，为空则返回 JSON
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql | postgres | sqlite
	DSN          string `mapstructure:"dsn"`    // 非空时优先使用
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type SessionConfig struct {
	Secret     string `mapstructure:"secret"`
	CookieName string `mapstructure:"cookie_name"`
	TTLHours   int    `mapstructure:"ttl_hours"`
	Secure     bool   `mapstructure:"secure"`
}

type AuthConfig struct {
	PendingTTLHours       int  `mapstructure:"pending_ttl_hours"`
	UsernameChangeDays    int  `mapstructure:"username_change_days"`
	GenericForgetPassword bool `mapstructure:"generic_forget_password"` // 为 true 时未知邮箱也返回成功
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type EmailConfig struct {
	Provider string `mapstructure:"provider"` // smtp | xoauth2 | sendgrid
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`

	OAuthClientID     string `mapstructure:"oauth_client_id"`
	OAuthClientSecret string `mapstructure:"oauth_client_secret"`
	OAuthRefreshToken string `mapstructure:"oauth_refresh_token"`

	SendgridAPIKey string `mapstructure:"sendgrid_api_key"`
}

type QueueConfig struct {
	Async      bool   `mapstructure:"async"` // false 时 API 进程内同步生成计划
	PlanQueue  string `mapstructure:"plan_queue"`
	MaxWorkers int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type PlannerConfig struct {
	Provider    string `mapstructure:"provider"`
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	HorizonDays int    `mapstructure:"horizon_days"`
}

type PlanStoreConfig struct {
	Driver        string `mapstructure:"driver"` // sql | mongo
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
}

type CleanupConfig struct {
	Schedule string `mapstructure:"schedule"` // cron 表达式
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | text
}

type UploadConfig struct {
	MaxSize           int64    `mapstructure:"max_size"`           // 头像最大大小（字节）
	AllowedExtensions []string `mapstructure:"allowed_extensions"` // 允许的扩展名
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.app_url", "http://localhost:8080")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("session.cookie_name", "fit_session")
	v.SetDefault("session.ttl_hours", 24*7)
	v.SetDefault("auth.pending_ttl_hours", 24)
	v.SetDefault("auth.username_change_days", 30)
	v.SetDefault("email.provider", "smtp")
	v.SetDefault("queue.async", true)
	v.SetDefault("queue.plan_queue", "plan_queue")
	v.SetDefault("queue.max_workers", 2)
	v.SetDefault("planner.provider", "gemini")
	v.SetDefault("planner.model", "gemini-1.5-flash")
	v.SetDefault("planner.horizon_days", 30)
	v.SetDefault("plan_store.driver", "sql")
	v.SetDefault("cleanup.schedule", "0 0 * * *")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("upload.max_size", 5<<20)
	v.SetDefault("upload.allowed_extensions", []string{".jpg", ".jpeg", ".png", ".webp"})
}

func Load(configPath string) (*Config, error) {
	// .env 中的变量（邮件凭据、数据库连接、Gemini key 等）先注入到进程环境
	_ = godotenv.Load()

	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
