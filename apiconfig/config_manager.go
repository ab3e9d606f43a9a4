package apiconfig

import (
	"os"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/dexloom/lloom/logging"
	"github.com/dexloom/lloom/protocol"
)

// ConfigManager loads configuration from a YAML file with LLOOM_*
// environment overrides and can write the normalized form back.
type ConfigManager struct {
	currentConfig  Config
	KoanProvider   koanf.Provider
	WriterProvider WriteCloserProvider
	mutex          sync.Mutex
}

type WriteCloser interface {
	Write([]byte) (int, error)
	Close() error
}

type WriteCloserProvider interface {
	GetWriter() (WriteCloser, error)
}

func LoadDefaultConfigManager() (*ConfigManager, error) {
	manager := ConfigManager{
		KoanProvider:   file.Provider(getConfigPath()),
		WriterProvider: NewFileWriteCloserProvider(getConfigPath()),
	}
	if err := manager.Load(); err != nil {
		return nil, err
	}
	return &manager, nil
}

func getConfigPath() string {
	configPath := os.Getenv("LLOOM_CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	return configPath
}

func (cm *ConfigManager) Load() error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	config, err := readConfig(cm.KoanProvider)
	if err != nil {
		return err
	}
	cm.currentConfig = config
	return nil
}

func (cm *ConfigManager) Write() error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	return writeConfig(cm.currentConfig, cm.WriterProvider)
}

// GetConfig returns a copy; mutating it does not affect the manager.
func (cm *ConfigManager) GetConfig() Config {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	config := cm.currentConfig
	config.Models = append([]ModelConfig(nil), cm.currentConfig.Models...)
	return config
}

func (cm *ConfigManager) GetDomainConfig() DomainConfig {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	return cm.currentConfig.Domain
}

func (cm *ConfigManager) GetLedgerConfig() LedgerConfig {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	return cm.currentConfig.Ledger
}

func readConfig(provider koanf.Provider) (Config, error) {
	k := koanf.New(".")
	parser := yaml.Parser()

	if err := k.Load(provider, parser); err != nil {
		return Config{}, err
	}
	// LLOOM_DOMAIN__CHAIN_ID=1 overrides domain.chain_id
	err := k.Load(env.Provider("LLOOM_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "LLOOM_")), "__", ".", -1)
	}), nil)
	if err != nil {
		return Config{}, err
	}

	config := DefaultConfig()
	if err := k.Unmarshal("", &config); err != nil {
		return Config{}, err
	}
	return config, nil
}

func writeConfig(config Config, writerProvider WriteCloserProvider) error {
	// Skip writing in tests where WriterProvider is nil
	if writerProvider == nil {
		return nil
	}
	writer, err := writerProvider.GetWriter()
	if err != nil {
		return err
	}
	defer writer.Close()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(config, "koanf"), nil); err != nil {
		logging.Error("error loading config", protocol.Config, "error", err)
		return err
	}
	output, err := k.Marshal(yaml.Parser())
	if err != nil {
		logging.Error("error marshalling config", protocol.Config, "error", err)
		return err
	}
	if _, err := writer.Write(output); err != nil {
		logging.Error("error writing config", protocol.Config, "error", err)
		return err
	}
	return nil
}

type FileWriteCloserProvider struct {
	path string
}

func NewFileWriteCloserProvider(path string) *FileWriteCloserProvider {
	return &FileWriteCloserProvider{path: path}
}

func (f *FileWriteCloserProvider) GetWriter() (WriteCloser, error) {
	return os.OpenFile(f.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
}
