package auth

import (
	"github.com/dmitrijs2005/gophauth/internal/server/config"
)

// testConfig returns defaults with argon2 costs low enough for unit tests.
func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "super-secret"
	cfg.Argon2 = config.Argon2{Time: 1, MemoryKiB: 1024, Threads: 1}
	return cfg
}
