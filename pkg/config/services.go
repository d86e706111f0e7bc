package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// 服务文件中的服务名
const (
	ServiceAgent   = "agent"
	ServiceGraphQL = "graphql"
)

// ServicesConfig 服务端点文件
// 部署时用它覆盖主配置中的端点，而不必改动主配置
type ServicesConfig struct {
	HTTPServices map[string]HTTPServiceInfo `yaml:"http_services"`
	Notes        []string                   `yaml:"notes"`
}

// HTTPServiceInfo HTTP 服务信息
type HTTPServiceInfo struct {
	URL         string        `yaml:"url"`
	Timeout     time.Duration `yaml:"timeout"`
	Description string        `yaml:"description"`
}

// LoadServicesConfig 从 YAML 文件加载服务配置
func LoadServicesConfig(configPath string) (*ServicesConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read services file %s: %w", configPath, err)
	}

	var services ServicesConfig
	if err := yaml.Unmarshal(data, &services); err != nil {
		return nil, fmt.Errorf("parse services file %s: %w", configPath, err)
	}
	return &services, nil
}

// Apply 用服务文件中的端点和超时覆盖配置
func (c *ServicesConfig) Apply(cfg *Config) {
	if info, ok := c.HTTPServices[ServiceAgent]; ok {
		if info.URL != "" {
			cfg.API.URL = info.URL
		}
		if info.Timeout > 0 {
			cfg.API.Timeout = info.Timeout
		}
	}
	if info, ok := c.HTTPServices[ServiceGraphQL]; ok {
		if info.URL != "" {
			cfg.GraphQL.URL = info.URL
		}
		if info.Timeout > 0 {
			cfg.GraphQL.Timeout = info.Timeout
		}
	}
}
