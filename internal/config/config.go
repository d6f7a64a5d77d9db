package config

import (
	"github.com/ipfsnut/birthdays-with-jose/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Sales    SalesConfig    `mapstructure:"sales"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Task     TaskConfig     `mapstructure:"task"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// SalesConfig 销售引擎配置（每个部署一份，不再写死在代码里）
type SalesConfig struct {
	BirthdayCap    uint64 `mapstructure:"birthday_cap"`    // 生日歌供应上限
	NatalCap       uint64 `mapstructure:"natal_cap"`       // 星盘歌供应上限
	BirthdayPrice  int64  `mapstructure:"birthday_price"`  // 生日歌价格（最小单位）
	NatalPrice     int64  `mapstructure:"natal_price"`     // 星盘歌价格（最小单位）
	FeePerOrder    int64  `mapstructure:"fee_per_order"`   // 每单平台费（最小单位）
	OwnerAddress   string `mapstructure:"owner_address"`   // 合约所有者地址
	PlatformWallet string `mapstructure:"platform_wallet"` // 平台钱包地址
	EngineAddress  string `mapstructure:"engine_address"`  // 引擎收款地址
	MasterKey      string `mapstructure:"master_key"`      // 订单加密主密钥（hex）
}

// StorageConfig 内容存储配置
type StorageConfig struct {
	Mode       string `mapstructure:"mode"`        // memory 或 gateway
	GatewayURL string `mapstructure:"gateway_url"` // 上传网关地址
	Timeout    int    `mapstructure:"timeout"`     // 请求超时（秒）
}

// ChainConfig 链上历史导入配置
type ChainConfig struct {
	Enabled   bool           `mapstructure:"enabled"`    // 是否启用链上导入
	ChainType string         `mapstructure:"chain_type"` // 链类型 (ethereum, polygon, etc.)
	ChainId   int64          `mapstructure:"chain_id"`   // 链ID
	RpcUrl    string         `mapstructure:"rpc_url"`    // RPC节点URL
	Contract  ContractConfig `mapstructure:"contract"`   // 销售合约配置
}

// ContractConfig 单个合约配置
type ContractConfig struct {
	Address  string `mapstructure:"address"`   // 合约地址
	ABIPath  string `mapstructure:"abi_path"`  // ABI文件路径
	BlockNum int64  `mapstructure:"block_num"` // 合约部署区块号
}

type TaskConfig struct {
	Interval int `mapstructure:"interval"` // 秒
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/bwj")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "songnft")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("sales.birthday_cap", 50)
	viper.SetDefault("sales.natal_cap", 50)
	viper.SetDefault("sales.birthday_price", 50000000)
	viper.SetDefault("sales.natal_price", 80000000)
	viper.SetDefault("sales.fee_per_order", 5000000)
	viper.SetDefault("storage.mode", "memory")
	viper.SetDefault("storage.timeout", 30)
	viper.SetDefault("chain.enabled", false)
	viper.SetDefault("task.interval", 60)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}
