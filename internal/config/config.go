package config

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "ZPICKER"

// Config holds the application configuration
type Config struct {
	LogLevel string `yaml:"log_level"`

	MultiDC                bool          `yaml:"multi_dc"`
	DefaultMaxSizeMB       int64         `yaml:"default_max_size_mb"`
	DefaultReplicas        int           `yaml:"default_replicas"`
	MaxUtilizationPct      float64       `yaml:"max_utilization_pct"`
	OperatorUtilizationPct float64       `yaml:"operator_utilization_pct"`
	MaxRecordAge           time.Duration `yaml:"max_record_age"`
	RefreshInterval        time.Duration `yaml:"refresh_interval"`

	// Source is "dynamodb", "file" (reads TopologyFile), "none" for
	// standalone mode, or an s3:// / gs:// object location.
	Source        string `yaml:"source"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	TopologyFile  string `yaml:"topology_file"`
	SnapshotDump  string `yaml:"snapshot_dump"`

	SSMParameterPath string `yaml:"ssm_parameter_path"`
	ListenAddress    string `yaml:"listen_address"`

	AwsConfig aws.Config
}

// SSMAPI is the subset of the SSM client used for threshold overrides.
type SSMAPI interface {
	ssm.GetParametersByPathAPIClient
}

// LoadConfig loads configuration from config.yaml, environment variables, or CLI flags
// Priority: CLI flags > SSM parameters > Environment variables > config.yaml > defaults
func LoadConfig(configPath string, rootCmd *cobra.Command) (*Config, error) {
	if err := setupViper(configPath, rootCmd); err != nil {
		return nil, err
	}

	awsConfig, err := loadAWSConfig()
	if err != nil {
		return nil, err
	}

	if p := viper.GetString("ssm_parameter_path"); p != "" {
		var flags *pflag.FlagSet
		if rootCmd != nil {
			flags = rootCmd.PersistentFlags()
		}
		if err := applySSMOverrides(context.Background(), ssm.NewFromConfig(awsConfig), p, flags); err != nil {
			return nil, err
		}
	}

	cfg := fromViper()
	cfg.AwsConfig = awsConfig

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupViper configures Viper with defaults, paths, and bindings
func setupViper(configPath string, rootCmd *cobra.Command) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	}

	setDefaults()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if rootCmd != nil {
		if err := bindFlags(rootCmd.PersistentFlags()); err != nil {
			return fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// bindFlags binds every flag to the config key of the same name, dashes
// becoming underscores.
func bindFlags(flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		bindErr = viper.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	return bindErr
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("multi_dc", true)
	viper.SetDefault("default_max_size_mb", 5120)
	viper.SetDefault("default_replicas", 2)
	viper.SetDefault("max_utilization_pct", 90)
	viper.SetDefault("operator_utilization_pct", 92)
	viper.SetDefault("max_record_age", "0s")
	viper.SetDefault("refresh_interval", "30s")
	viper.SetDefault("source", "dynamodb")
	viper.SetDefault("dynamodb_table", "storage_nodes")
	viper.SetDefault("topology_file", "topology.json")
	viper.SetDefault("snapshot_dump", "")
	viper.SetDefault("ssm_parameter_path", "")
	viper.SetDefault("listen_address", ":8080")
}

func fromViper() *Config {
	return &Config{
		LogLevel:               viper.GetString("log_level"),
		MultiDC:                viper.GetBool("multi_dc"),
		DefaultMaxSizeMB:       viper.GetInt64("default_max_size_mb"),
		DefaultReplicas:        viper.GetInt("default_replicas"),
		MaxUtilizationPct:      viper.GetFloat64("max_utilization_pct"),
		OperatorUtilizationPct: viper.GetFloat64("operator_utilization_pct"),
		MaxRecordAge:           viper.GetDuration("max_record_age"),
		RefreshInterval:        viper.GetDuration("refresh_interval"),
		Source:                 viper.GetString("source"),
		DynamoDBTable:          viper.GetString("dynamodb_table"),
		TopologyFile:           viper.GetString("topology_file"),
		SnapshotDump:           viper.GetString("snapshot_dump"),
		SSMParameterPath:       viper.GetString("ssm_parameter_path"),
		ListenAddress:          viper.GetString("listen_address"),
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.DefaultMaxSizeMB <= 0 {
		return fmt.Errorf("default_max_size_mb must be positive, got %d", c.DefaultMaxSizeMB)
	}
	if c.DefaultReplicas < 1 {
		return fmt.Errorf("default_replicas must be at least 1, got %d", c.DefaultReplicas)
	}
	for key, pct := range map[string]float64{
		"max_utilization_pct":      c.MaxUtilizationPct,
		"operator_utilization_pct": c.OperatorUtilizationPct,
	} {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("%s must be between 0 and 100, got %v", key, pct)
		}
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be positive, got %s", c.RefreshInterval)
	}
	return nil
}

// overridableKeys are the settings that may be shared through SSM.
var overridableKeys = map[string]bool{
	"max_utilization_pct":      true,
	"operator_utilization_pct": true,
	"default_max_size_mb":      true,
	"default_replicas":         true,
}

// applySSMOverrides reads numeric parameters stored under parameterPath, e.g.
// /picker/prod/max_utilization_pct, and sets them on top of local config.
// Keys whose flag was set explicitly on the command line keep the flag value.
func applySSMOverrides(ctx context.Context, client SSMAPI, parameterPath string, flags *pflag.FlagSet) error {
	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(parameterPath),
		WithDecryption: aws.Bool(true),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to read SSM parameters under %s: %w", parameterPath, err)
		}

		for _, p := range page.Parameters {
			if p.Name == nil || p.Value == nil {
				continue
			}
			key := path.Base(*p.Name)
			if !overridableKeys[key] {
				log.Debugf("Ignoring SSM parameter %s", *p.Name)
				continue
			}
			if flagChanged(flags, key) {
				log.Infof("Keeping %s from the command line over SSM parameter %s", key, *p.Name)
				continue
			}

			value, err := strconv.ParseFloat(strings.TrimSpace(*p.Value), 64)
			if err != nil {
				return fmt.Errorf("SSM parameter %s is not numeric: %w", *p.Name, err)
			}
			log.Infof("Overriding %s from SSM parameter %s", key, *p.Name)
			SetConfigValue(key, value)
		}
	}

	return nil
}

func flagChanged(flags *pflag.FlagSet, key string) bool {
	if flags == nil {
		return false
	}
	f := flags.Lookup(strings.ReplaceAll(key, "_", "-"))
	return f != nil && f.Changed
}

// loadAWSConfig loads AWS SDK configuration
func loadAWSConfig() (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS SDK config: %v", err)
	}
	return cfg, nil
}

// SetConfigValue sets a configuration value (used for CLI flags)
func SetConfigValue(key string, value interface{}) {
	viper.Set(key, value)
}
