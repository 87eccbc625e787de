package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"telegram": map[string]interface{}{
			"token":      "",
			"owner_id":   0,
			"partner_id": 0,
		},
		"database": map[string]interface{}{
			"driver": DriverSQLite3,
			"path":   "./data/mediremind.db",
			"url":    "",
		},
		"timezone": "UTC",
		"server": map[string]interface{}{
			"port":        "8080",
			"webhook_url": "",
		},
		"api": map[string]interface{}{
			"username": "",
			"password": "",
		},
		"log": map[string]interface{}{
			"level":  "info",
			"format": "console",
		},
		"notify": map[string]interface{}{
			"enabled":      true,
			"rate_per_sec": 1.0, // Telegram allows ~1 msg/s per chat
		},
		"caldav": map[string]interface{}{
			"url":      "",
			"username": "",
			"password": "",
			"calendar": "",
		},
		"todoist": map[string]interface{}{
			"token":   "",
			"project": "",
		},
		"expiry": map[string]interface{}{
			"cron": "5 0 * * *",
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}
