package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			Workspace:       "~/.minibot/workspace",
			LogLevel:        "info",
			MaxIterations:   20,
			HistoryLimit:    50,
			DefaultProvider: "openai",
			MaxSpendDollars: 0,
		},
		Providers: map[string]ProviderConfig{
			"openai": {
				Enabled:         false,
				APIBase:         "https://api.openai.com/v1",
				DefaultModel:    "gpt-4o-mini",
				InputPricePerM:  0.15,
				OutputPricePerM: 0.60,
			},
			"claude": {
				Enabled:         false,
				DefaultModel:    "claude-sonnet-4-20250514",
				InputPricePerM:  3.0,
				OutputPricePerM: 15.0,
			},
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{
				Enabled:   false,
				ParseMode: "Markdown",
			},
			CLI: CLIConfig{
				Enabled: true,
			},
		},
		Session: SessionConfig{
			DBPath: "~/.minibot/sessions.db",
			Remote: RemoteConfig{
				Enabled:  false,
				Prefetch: true,
			},
		},
		Tools: ToolsConfig{
			Shell: ShellToolConfig{
				TimeoutSeconds: 30,
				MaxOutputBytes: 65536,
			},
			RestrictToWorkspace: false,
		},
	}
}
