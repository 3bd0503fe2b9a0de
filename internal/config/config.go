package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/medassist-rag/medassist/internal/utils"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIBaseURL   = "http://localhost:8000"
	DefaultGlamourStyle = "dark"
	DefaultLogLevel     = "info"

	// APIBaseEnv 是唯一影响行为的环境变量
	APIBaseEnv = "MEDASSIST_API_BASE"
)

type Config struct {
	APIBaseURL     string        `yaml:"api_base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	ExportDir      string        `yaml:"export_dir"`
	LogFile        string        `yaml:"log_file"`
	LogLevel       string        `yaml:"log_level"`
	GlamourStyle   string        `yaml:"glamour_style"`
	Contact        ContactConfig `yaml:"contact"`
}

type ContactConfig struct {
	Email string `yaml:"email"`
	URL   string `yaml:"url"`
}

// LoadConfig 读取配置文件，然后用 .env 与环境变量覆盖 API 地址
func LoadConfig() (*Config, error) {
	// .env 不存在是正常情况
	_ = godotenv.Load()

	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	config := &Config{}
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	if base := strings.TrimSpace(os.Getenv(APIBaseEnv)); base != "" {
		config.APIBaseURL = base
	}

	if err := config.applyDefaults(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyDefaults() error {
	c.APIBaseURL = NormalizeBaseURL(c.APIBaseURL)
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = utils.DefaultMaxImageSize
	}
	if c.RequestTimeout < 0 {
		c.RequestTimeout = 0
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.GlamourStyle == "" {
		c.GlamourStyle = DefaultGlamourStyle
	}
	if c.Contact.Email == "" {
		c.Contact.Email = "contact@example.com"
	}
	if c.Contact.URL == "" {
		c.Contact.URL = "github.com/your-handle"
	}

	configDir, err := utils.GetConfigDir()
	if err != nil {
		return fmt.Errorf("获取配置目录失败: %w", err)
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(configDir, "logs", "medassist.log")
	}
	if c.ExportDir == "" {
		c.ExportDir = filepath.Join(configDir, "exports")
	}
	c.LogFile = utils.ExpandHome(c.LogFile)
	c.ExportDir = utils.ExpandHome(c.ExportDir)
	return nil
}

// NormalizeBaseURL 去掉首尾空白和末尾的斜杠
func NormalizeBaseURL(base string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/")
}

func SaveConfig(config *Config) error {
	configPath, err := getConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

func getConfigPath() (string, error) {
	configDir, err := utils.GetConfigDir()
	if err != nil {
		return "", fmt.Errorf("获取配置目录失败: %w", err)
	}
	return filepath.Join(configDir, "config.yaml"), nil
}
