package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type ObjectStorage struct {
	Endpoint  string `yaml:"Endpoint"`
	AccessKey string `yaml:"AccessKey"`
	SecretKey string `yaml:"SecretKey"`
	Bucket    string `yaml:"Bucket"`
	Region    string `yaml:"Region"`
}

type SMTP struct {
	Listen          string `yaml:"Listen"`
	Domain          string `yaml:"Domain"`
	MaxMessageBytes int    `yaml:"MaxMessageBytes"`
	// Relay is the smarthost that forwarded copies are handed to.
	Relay string `yaml:"Relay"`
}

type Retention struct {
	// MaxAge is a duration string such as "1h" or "72h".
	// Empty disables age eviction.
	MaxAge     string `yaml:"MaxAge"`
	MaxRecords int    `yaml:"MaxRecords"`

	maxAge time.Duration
}

type Config struct {
	Database      string        `yaml:"Database"`
	LogFile       string        `yaml:"LogFile"`
	APIListen     string        `yaml:"APIListen"`
	AdminAddress  string        `yaml:"AdminAddress"`
	KeywordFilter []string      `yaml:"KeywordFilter"`
	NotifyTZ      string        `yaml:"NotifyTZ"`
	SMTP          SMTP          `yaml:"SMTP"`
	Retention     Retention     `yaml:"Retention"`
	ObjectStorage ObjectStorage `yaml:"ObjectStorage"`
}

func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var conf Config
	if err := yaml.Unmarshal(buf, &conf); err != nil {
		return nil, err
	}

	if conf.Retention.MaxAge != "" {
		d, err := time.ParseDuration(conf.Retention.MaxAge)
		if err != nil {
			return nil, fmt.Errorf("invalid Retention.MaxAge %q: %w", conf.Retention.MaxAge, err)
		}
		conf.Retention.maxAge = d
	}

	return &conf, nil
}

func (r Retention) MaxAgeDuration() time.Duration {
	return r.maxAge
}
