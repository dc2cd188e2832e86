package config

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/i2-open/i2goScimBulk/pkg/goScim/client"
)

var configLog = log.New(os.Stdout, "CONFIG: ", log.Ldate|log.Ltime)

type Config struct {
	OrgId string `envconfig:"WEBEX_ORG_ID"`
	Token string `envconfig:"WEBEX_SCIM_TOKEN"`

	Host    string `envconfig:"SCIM_HOST" default:"webexapis.com"`
	BaseUrl string `envconfig:"SCIM_BASE_URL"`

	RetryMaxAttempts  int           `envconfig:"SCIM_RETRY_MAX_ATTEMPTS" default:"0"`
	RetryDefaultDelay time.Duration `envconfig:"SCIM_RETRY_DEFAULT_DELAY" default:"5s"`
	HttpTimeout       time.Duration `envconfig:"SCIM_HTTP_TIMEOUT" default:"30s"`
	RequestsPerSecond float64       `envconfig:"SCIM_REQUESTS_PER_SECOND" default:"0"`
}

// LoadDotEnv loads variables from envFile without overriding ones already set. A missing
// file is not an error unless the caller named it explicitly.
func LoadDotEnv(envFile string, required bool) error {
	if envFile == "" {
		return nil
	}
	if _, err := os.Stat(envFile); errors.Is(err, os.ErrNotExist) {
		if required {
			return err
		}
		return nil
	}
	configLog.Printf("Loading environment from %s", envFile)
	return godotenv.Load(envFile)
}

func GetEnvConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		configLog.Println("Error occurred reading configuration: " + err.Error())
		return Config{}, err
	}
	return cfg, nil
}

// ClientConfig converts the environment settings into a client configuration. Credentials
// are not validated here; client.NewClient reports them as a ConfigurationError.
func (c Config) ClientConfig() client.Config {
	return client.Config{
		OrgId:             c.OrgId,
		Token:             c.Token,
		Host:              c.Host,
		BaseUrl:           c.BaseUrl,
		Timeout:           c.HttpTimeout,
		RequestsPerSecond: c.RequestsPerSecond,
		Retry: client.RetryPolicy{
			MaxAttempts:  c.RetryMaxAttempts,
			DefaultDelay: c.RetryDefaultDelay,
		},
	}
}
