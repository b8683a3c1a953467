package config

import "time"

func LoadTestConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "localhost",
			Port:           8081,
			RequestTimeout: 5 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		JWT: JWTConfig{
			Secret:     "test-secret",
			CookieName: "jwt",
		},
		Backend: BackendConfig{
			URL:     "http://localhost:1337/graphql",
			Timeout: 2 * time.Second,
		},
		Actions: ActionsConfig{
			CatalogPath: "configs/actions.yaml",
			Timeout:     2 * time.Second,
		},
		Notify: NotifyConfig{
			Mode:          NotifyModeInline,
			Concurrency:   4,
			DefaultLocale: "he",
		},
		Cache: CacheConfig{
			Provider:  CacheProviderMemory,
			TTL:       5 * time.Minute,
			SweepCron: "*/10 * * * *",
			KeyPrefix: "membership:test:",
		},
		Members: MembershipConfig{
			Operation:  "projectMembers",
			ResultPath: "project.data.attributes.users.data",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		},
	}
}
