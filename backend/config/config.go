package config

import "github.com/spf13/viper"

// AgentConfig 是 agent 进程（跑语言模型、持有权威缓冲区）的配置
type AgentConfig struct {
	Running struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"running"`
	Storage struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"storage"`
	Mysql struct {
		DSN     string `mapstructure:"dsn"`
		Enabled bool   `mapstructure:"enabled"`
	} `mapstructure:"mysql"`
	Kafka struct {
		Brokers    []string `mapstructure:"brokers"`
		TopicOps   string   `mapstructure:"topicOps"`
		TopicSaves string   `mapstructure:"topicSaves"`
		Enabled    bool     `mapstructure:"enabled"`
	} `mapstructure:"kafka"`
	AutoSave struct {
		DebounceMs int `mapstructure:"debounceMs"`
	} `mapstructure:"autoSave"`
	LLM struct {
		APIKey string `mapstructure:"apiKey"` // 空则回落到 GEMINI_API_KEY 环境变量
		Model  string `mapstructure:"model"`
	} `mapstructure:"llm"`
}

// ViewConfig 是视图进程（服务浏览器客户端）的配置
type ViewConfig struct {
	Running struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"running"`
	Agent struct {
		URL string `mapstructure:"url"` // 例如 ws://localhost:9001/ipc
	} `mapstructure:"agent"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		Enabled  bool   `mapstructure:"enabled"`
	} `mapstructure:"redis"`
	Mysql struct {
		DSN     string `mapstructure:"dsn"`
		Enabled bool   `mapstructure:"enabled"`
	} `mapstructure:"mysql"`
	Command struct {
		TimeoutMs int `mapstructure:"timeoutMs"`
	} `mapstructure:"command"`
	Auth struct {
		Secret    string `mapstructure:"secret"`
		DevTokens bool   `mapstructure:"devTokens"` // 开发用：开放 /v1/auth/token 签发端点
	} `mapstructure:"auth"`
}

func load(name string, out interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	// 兼容从项目根目录或 backend 目录启动
	v.AddConfigPath("./backend/config")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	return v.Unmarshal(out)
}

func LoadAgent() (*AgentConfig, error) {
	cfg := &AgentConfig{}
	if err := load("agentConfig", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadView() (*ViewConfig, error) {
	cfg := &ViewConfig{}
	if err := load("viewConfig", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
