package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"github.com/spf13/viper"
)

// ConfigMode 配置模式
type ConfigMode string

const (
	// ModeLocal 本地配置模式
	ModeLocal ConfigMode = "local"
	// ModeNacos Nacos配置中心模式
	ModeNacos ConfigMode = "nacos"
)

// NacosConfig Nacos 连接配置
type NacosConfig struct {
	ServerAddr string `mapstructure:"server_addr" yaml:"server_addr"`
	ServerPort uint64 `mapstructure:"server_port" yaml:"server_port"`
	Namespace  string `mapstructure:"namespace" yaml:"namespace"`
	Group      string `mapstructure:"group" yaml:"group"`
	DataID     string `mapstructure:"data_id" yaml:"data_id"`
	Username   string `mapstructure:"username" yaml:"username"`
	Password   string `mapstructure:"password" yaml:"password"`
	LogDir     string `mapstructure:"log_dir" yaml:"log_dir"`
	CacheDir   string `mapstructure:"cache_dir" yaml:"cache_dir"`
	LogLevel   string `mapstructure:"log_level" yaml:"log_level"`
	TimeoutMs  uint64 `mapstructure:"timeout_ms" yaml:"timeout_ms"`
}

// Manager 配置管理器
// 本地模式下配置文件可省略，此时只使用默认值和环境变量
type Manager struct {
	mode        ConfigMode
	nacosClient config_client.IConfigClient
	nacosConfig *NacosConfig
	viper       *viper.Viper
	localConfig string
	log         *log.Helper
}

// NewManager 创建配置管理器
func NewManager(logger log.Logger) *Manager {
	if logger == nil {
		logger = log.DefaultLogger
	}
	return &Manager{
		viper: viper.New(),
		log:   log.NewHelper(log.With(logger, "module", "config")),
	}
}

// LoadConfig 加载配置
// configPath: 本地配置文件路径（Nacos 模式下为连接配置）
// appName: Nacos DataID 的默认前缀
func (m *Manager) LoadConfig(configPath, appName string) error {
	mode := os.Getenv("CONFIG_MODE")
	if mode == "" {
		mode = string(ModeLocal)
	}
	m.mode = ConfigMode(strings.ToLower(mode))

	switch m.mode {
	case ModeNacos:
		return m.loadFromNacos(configPath, appName)
	case ModeLocal:
		return m.loadFromLocal(configPath)
	default:
		return fmt.Errorf("unsupported config mode: %s", mode)
	}
}

// loadFromLocal 从本地文件加载配置
func (m *Manager) loadFromLocal(configPath string) error {
	if configPath == "" {
		m.log.Debug("no config file given, using defaults and environment")
		return nil
	}

	m.localConfig = configPath
	m.viper.SetConfigFile(configPath)
	if err := m.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read local config failed: %w", err)
	}

	m.log.Infof("loaded config from local file: %s", configPath)
	return nil
}

// nacosSettings 读取 Nacos 连接配置，环境变量优先
func nacosSettings(configPath, appName string) (*NacosConfig, error) {
	local := viper.New()
	local.SetConfigFile(configPath)
	if err := local.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read nacos connection config failed: %w", err)
	}

	nc := &NacosConfig{}
	if err := local.UnmarshalKey("nacos", nc); err != nil {
		return nil, fmt.Errorf("unmarshal nacos config failed: %w", err)
	}

	overrides := map[string]*string{
		"NACOS_SERVER_ADDR": &nc.ServerAddr,
		"NACOS_NAMESPACE":   &nc.Namespace,
		"NACOS_GROUP":       &nc.Group,
		"NACOS_DATA_ID":     &nc.DataID,
		"NACOS_USERNAME":    &nc.Username,
		"NACOS_PASSWORD":    &nc.Password,
	}
	for env, field := range overrides {
		if v := os.Getenv(env); v != "" {
			*field = v
		}
	}

	if nc.DataID == "" {
		nc.DataID = appName + ".yaml"
	}
	if nc.ServerPort == 0 {
		nc.ServerPort = 8848
	}
	if nc.Group == "" {
		nc.Group = "DEFAULT_GROUP"
	}
	if nc.LogDir == "" {
		nc.LogDir = "/tmp/nacos/log"
	}
	if nc.CacheDir == "" {
		nc.CacheDir = "/tmp/nacos/cache"
	}
	if nc.LogLevel == "" {
		nc.LogLevel = "warn"
	}
	if nc.TimeoutMs == 0 {
		nc.TimeoutMs = 5000
	}
	return nc, nil
}

// loadFromNacos 从Nacos配置中心加载配置
func (m *Manager) loadFromNacos(configPath, appName string) error {
	nc, err := nacosSettings(configPath, appName)
	if err != nil {
		return err
	}
	m.nacosConfig = nc

	serverConfigs := []constant.ServerConfig{
		*constant.NewServerConfig(nc.ServerAddr, nc.ServerPort, constant.WithContextPath("/nacos")),
	}
	clientConfig := *constant.NewClientConfig(
		constant.WithNamespaceId(nc.Namespace),
		constant.WithTimeoutMs(nc.TimeoutMs),
		constant.WithNotLoadCacheAtStart(true),
		constant.WithLogDir(nc.LogDir),
		constant.WithCacheDir(nc.CacheDir),
		constant.WithLogLevel(nc.LogLevel),
		constant.WithUsername(nc.Username),
		constant.WithPassword(nc.Password),
	)

	configClient, err := clients.NewConfigClient(vo.NacosClientParam{
		ClientConfig:  &clientConfig,
		ServerConfigs: serverConfigs,
	})
	if err != nil {
		return fmt.Errorf("create nacos client failed: %w", err)
	}
	m.nacosClient = configClient

	content, err := configClient.GetConfig(vo.ConfigParam{DataId: nc.DataID, Group: nc.Group})
	if err != nil {
		return fmt.Errorf("get config from nacos failed: %w", err)
	}

	m.viper.SetConfigType("yaml")
	if err := m.viper.ReadConfig(strings.NewReader(content)); err != nil {
		return fmt.Errorf("parse nacos config failed: %w", err)
	}
	m.log.Infof("loaded config from nacos: %s/%s (namespace: %s)", nc.Group, nc.DataID, nc.Namespace)

	if err := m.watchConfigChange(); err != nil {
		m.log.Warnf("watch config change failed: %v", err)
	}
	return nil
}

// watchConfigChange 监听配置变更
// 已创建的客户端不会重建，变更在下次加载时生效
func (m *Manager) watchConfigChange() error {
	return m.nacosClient.ListenConfig(vo.ConfigParam{
		DataId: m.nacosConfig.DataID,
		Group:  m.nacosConfig.Group,
		OnChange: func(namespace, group, dataId, data string) {
			m.viper.SetConfigType("yaml")
			if err := m.viper.ReadConfig(strings.NewReader(data)); err != nil {
				m.log.Errorf("reload config %s/%s failed: %v", group, dataId, err)
				return
			}
			m.log.Infof("config %s/%s reloaded", group, dataId)
		},
	})
}

// Unmarshal 解析配置到结构体
func (m *Manager) Unmarshal(rawVal interface{}) error {
	return m.viper.Unmarshal(rawVal)
}

// IsSet 检查key是否被设置
func (m *Manager) IsSet(key string) bool {
	return m.viper.IsSet(key)
}

// GetMode 获取配置模式
func (m *Manager) GetMode() ConfigMode {
	return m.mode
}

// Viper 获取底层viper实例
func (m *Manager) Viper() *viper.Viper {
	return m.viper
}

// Close 关闭配置管理器
func (m *Manager) Close() error {
	if m.nacosClient != nil {
		return m.nacosClient.CancelListenConfig(vo.ConfigParam{
			DataId: m.nacosConfig.DataID,
			Group:  m.nacosConfig.Group,
		})
	}
	return nil
}
