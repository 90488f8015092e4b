// Package validation checks configuration structs and request inputs.
//
// Struct validation uses go-playground/validator tags. Fields are reported
// by their yaml or json key, and the http_url, http_method and header_name
// tags are available in addition to the standard ones:
//
//	type Config struct {
//	    BaseURL string            `yaml:"base_url" validate:"omitempty,http_url"`
//	    Headers map[string]string `yaml:"headers" validate:"dive,keys,header_name,endkeys"`
//	}
//	err := validation.Validate(cfg)
//
// The Validator type collects errors programmatically:
//
//	err := validation.New().Method("method", m).URL("url", target).Err()
package validation
