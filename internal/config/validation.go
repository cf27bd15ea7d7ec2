package config

import (
	"net/url"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
)

// Validate validates the complete configuration structure.
func Validate(cfg *Config) error {
	v := &configurationValidator{config: cfg}
	return v.validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateConfluence(); err != nil {
		return err
	}
	if err := cv.validateOutput(); err != nil {
		return err
	}
	if err := cv.validateLoad(); err != nil {
		return err
	}
	return cv.validateDaemon()
}

func (cv *configurationValidator) validateConfluence() error {
	c := cv.config.Confluence
	if c.BaseURL == "" {
		return errors.ConfigError("confluence.base_url is required").Build()
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return errors.ConfigError("confluence.base_url must be an absolute URL").
			WithContext("base_url", c.BaseURL).Build()
	}
	if c.Username == "" || c.Token == "" {
		return errors.ConfigError("confluence.username and confluence.token are required").Build()
	}
	if c.PageURL == "" && c.PageID == "" {
		return errors.ConfigError("one of confluence.page_url or confluence.page_id is required").Build()
	}
	if c.PageID != "" {
		if _, err := strconv.ParseInt(c.PageID, 10, 64); err != nil {
			return errors.ConfigError("confluence.page_id must be numeric").
				WithContext("page_id", c.PageID).Build()
		}
	}
	return nil
}

func (cv *configurationValidator) validateOutput() error {
	if strings.TrimSpace(cv.config.Output.Directory) == "" {
		return errors.ConfigError("output.directory cannot be blank").Build()
	}
	return nil
}

func (cv *configurationValidator) validateLoad() error {
	l := cv.config.Load
	if l == nil {
		return nil
	}
	if l.URL == "" {
		return errors.ConfigError("load.url is required when the load stage is configured").Build()
	}
	if l.Auth != nil {
		switch l.Auth.Type {
		case "token":
			if l.Auth.Token == "" {
				return errors.ConfigError("load.auth.token is required for token auth").Build()
			}
		case "basic":
			if l.Auth.Username == "" || l.Auth.Password == "" {
				return errors.ConfigError("load.auth.username and load.auth.password are required for basic auth").Build()
			}
		default:
			return errors.ConfigError("load.auth.type must be one of: token, basic").
				WithContext("type", l.Auth.Type).Build()
		}
	}
	return nil
}

func (cv *configurationValidator) validateDaemon() error {
	d := cv.config.Daemon
	if d == nil {
		return nil
	}
	if d.NATS != nil && d.NATS.URL == "" {
		return errors.ConfigError("daemon.nats.url is required when NATS publishing is configured").Build()
	}
	return nil
}
