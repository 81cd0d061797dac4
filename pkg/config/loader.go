package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadFile 加载 YAML 配置并解码到 out
// 顺序: path -> 同目录 <env>.yaml（存在时深度合并覆盖）-> secrets.env 占位符替换
func LoadFile(path, env string, out any) error {
	cfg, err := loadYAMLFile(path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if env != "" {
		envFile := filepath.Join(dir, env+".yaml")
		if envFile != filepath.Clean(path) {
			if _, err := os.Stat(envFile); err == nil {
				envConfig, err := loadYAMLFile(envFile)
				if err != nil {
					return fmt.Errorf("failed to load %s.yaml: %w", env, err)
				}
				cfg = mergeMaps(cfg, envConfig)
			}
		}
	}

	secrets, err := loadSecrets(filepath.Join(dir, "secrets.env"))
	if err != nil {
		return err
	}
	cfg = substituteEnvVars(cfg, secrets)

	return decodeMap(cfg, out)
}

// loadSecrets 读取 secrets.env，不存在时返回空 map
func loadSecrets(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		return map[string]string{}, nil
	}
	secrets, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets.env: %w", err)
	}
	return secrets, nil
}

// loadYAMLFile 加载 YAML 文件
func loadYAMLFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config map[string]interface{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	if config == nil {
		config = make(map[string]interface{})
	}

	return config, nil
}

// decodeMap 通过 YAML 重新编码把 map 解码为结构体
func decodeMap(m map[string]interface{}, out any) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode merged config: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

// mergeMaps 合并两个 map，dst 会被 src 覆盖
func mergeMaps(dst, src map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for k, v := range dst {
		result[k] = v
	}

	for k, v := range src {
		if dstMap, ok := result[k].(map[string]interface{}); ok {
			if srcMap, ok := v.(map[string]interface{}); ok {
				// 递归合并嵌套 map
				result[k] = mergeMaps(dstMap, srcMap)
			} else {
				result[k] = v
			}
		} else {
			result[k] = v
		}
	}

	return result
}

// substituteEnvVars 替换配置中的环境变量占位符 ${VAR_NAME}
func substituteEnvVars(config map[string]interface{}, env map[string]string) map[string]interface{} {
	result := make(map[string]interface{})
	for k, v := range config {
		switch val := v.(type) {
		case string:
			result[k] = substituteString(val, env)
		case map[string]interface{}:
			result[k] = substituteEnvVars(val, env)
		default:
			result[k] = v
		}
	}
	return result
}

// substituteString 替换字符串中的环境变量，secrets 优先，其次系统环境变量
func substituteString(s string, env map[string]string) string {
	if !strings.Contains(s, "${") {
		return s
	}

	return os.Expand(s, func(key string) string {
		if v, ok := env[key]; ok {
			return v
		}
		return os.Getenv(key)
	})
}

// GetEnv 获取环境变量，如果未设置则返回默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetConfigEnv 获取配置环境（环境变量 CONFIG_ENV），未设置时不叠加环境文件
func GetConfigEnv() string {
	return os.Getenv("CONFIG_ENV")
}
