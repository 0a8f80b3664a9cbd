// AngelaMos | 2026
// config_test.go

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheSweepScheduleDerivedFromSweepInterval(t *testing.T) {
	c := &Config{}
	c.Authz.SweepInterval = 2 * time.Minute

	applyDerived(c)

	assert.Equal(t, "@every 2m0s", c.Jobs.CacheSweepSchedule)
}

func TestCacheSweepScheduleOverrideWins(t *testing.T) {
	c := &Config{}
	c.Authz.SweepInterval = 2 * time.Minute
	c.Jobs.CacheSweepSchedule = "*/5 * * * *"

	applyDerived(c)

	assert.Equal(t, "*/5 * * * *", c.Jobs.CacheSweepSchedule)
}

func TestValidateRejectsNonPositiveSweepInterval(t *testing.T) {
	c := validConfig()
	c.Authz.SweepInterval = 0

	err := validate(c)
	assert.ErrorContains(t, err, "authz.sweep_interval")
}

func validConfig() *Config {
	c := &Config{}
	c.Database.URL = "postgres://localhost/app"
	c.Redis.URL = "redis://localhost:6379"
	c.JWT.PrivateKeyPath = "keys/private.pem"
	c.JWT.PublicKeyPath = "keys/public.pem"
	c.Authz.CacheBackend = "memory"
	c.Authz.ContextTTL = 5 * time.Minute
	c.Authz.SweepInterval = time.Minute
	c.Server.ReadTimeout = 30 * time.Second
	c.Server.WriteTimeout = 30 * time.Second
	return c
}
