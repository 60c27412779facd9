package config

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 8001,
		},
		Channels: ChannelsConfig{
			Webex: WebexConfig{
				BaseURL: "https://webexapis.com/v1",
			},
		},
		Store: StoreConfig{
			Path: "~/.botper/botper.db",
		},
		Sessions: SessionsConfig{
			TTLSeconds:      3600,
			DedupWindow:     100,
			SelfCheckPolicy: SelfCheckContinue,
			FetchAttempts:   3,
			FetchBackoffMS:  1000,
		},
		Meetings: MeetingsConfig{
			Enabled:            true,
			BaseURL:            "https://webexapis.com/v1",
			DurationMinutes:    60,
			StartBufferMinutes: 2,
		},
		OAuth: OAuthConfig{
			RedirectURL: "http://localhost:8001/auth/webex/callback",
			Scopes: []string{
				"spark:messages_read",
				"spark:messages_write",
				"spark:rooms_read",
				"spark:people_read",
				"meeting:schedules_write",
				"meeting:schedules_read",
			},
		},
		Housekeeping: HousekeepingConfig{
			Enabled:  true,
			Schedule: "*/15 * * * *",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
