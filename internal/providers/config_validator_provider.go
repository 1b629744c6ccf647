package providers

import (
	"errors"
	"fmt"
	"streamwatch/internal/structures"
	"time"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	v.StopOnError = false
	if !v.Validate() {
		return fmt.Errorf("invalid config: %s", v.Errors.String())
	}

	if cv.conf.Storage.Driver != "memory" && cv.conf.Storage.Dsn == "" {
		return fmt.Errorf("invalid config: storage.dsn is required for driver %q", cv.conf.Storage.Driver)
	}
	if cv.conf.Dashboard.Timezone != "" {
		if _, err := time.LoadLocation(cv.conf.Dashboard.Timezone); err != nil {
			return fmt.Errorf("invalid config: dashboard.timezone: %w", err)
		}
	}
	if cv.conf.Dashboard.DefaultWindowHours < 0 {
		return errors.New("invalid config: dashboard.defaultWindowHours must not be negative")
	}

	tw := cv.conf.Producers.Twitch
	if tw.Enabled && (tw.ClientId == "" || tw.ClientSecret == "") {
		return errors.New("invalid config: twitch producer requires clientId and clientSecret")
	}
	if cv.conf.Producers.Youtube.Enabled && cv.conf.Producers.Youtube.ApiKey == "" {
		return errors.New("invalid config: youtube producer requires apiKey")
	}
	return nil
}
