// Package config loads configuration files for httpkit applications.
//
// Files are read with Viper, so YAML, JSON and TOML all work. Environment
// variables, including those from an optional .env file, override file
// values:
//
//	var cfg struct {
//	    HTTP httpclient.Config `mapstructure:"http"`
//	}
//	err := config.LoadConfig("billing-api", &cfg, config.WithEnvPrefix("BILLING"))
//
// With the prefix above, BILLING_HTTP_BASE_URL sets http.base_url.
package config
