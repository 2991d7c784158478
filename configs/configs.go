package configs

import "github.com/spf13/viper"

type Conf struct {
	ServiceName    string `mapstructure:"SERVICE_NAME"`
	ServiceVersion string `mapstructure:"SERVICE_VERSION"`

	DBDriver   string `mapstructure:"DB_DRIVER"`
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	AMQPURL      string `mapstructure:"AMQP_URL"`
	AMQPExchange string `mapstructure:"AMQP_EXCHANGE"`
	AMQPQueue    string `mapstructure:"AMQP_QUEUE"`

	WebServerPort     string `mapstructure:"WEB_SERVER_PORT"`
	OtelCollectorAddr string `mapstructure:"OTEL_COLLECTOR_ADDR"`

	RateLimitPerSecond int `mapstructure:"RATE_LIMIT_PER_SECOND"`
	RateLimitBurst     int `mapstructure:"RATE_LIMIT_BURST"`
}

func LoadConfig(path string) (*Conf, error) {
	var cfg *Conf

	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("SERVICE_NAME", "stocker")
	viper.SetDefault("SERVICE_VERSION", "dev")
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("AMQP_EXCHANGE", "stocker.events")
	viper.SetDefault("AMQP_QUEUE", "stocker.events.all")
	viper.SetDefault("WEB_SERVER_PORT", "8080")
	viper.SetDefault("RATE_LIMIT_PER_SECOND", 50)
	viper.SetDefault("RATE_LIMIT_BURST", 100)

	if err := viper.ReadInConfig(); err != nil {
		// a missing .env is fine, the environment still applies
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DSN renders the lib/pq connection string.
func (c *Conf) DSN() string {
	return "host=" + c.DBHost + " port=" + c.DBPort + " user=" + c.DBUser +
		" password=" + c.DBPassword + " dbname=" + c.DBName + " sslmode=disable"
}
