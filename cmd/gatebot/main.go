package main

import (
	"log"

	"github.com/joho/godotenv"

	corecmd "gatebot/core/cmd"
	"gatebot/core/bootstrap"

	"gatebot/internal/app"
	"gatebot/internal/bot"
)

func main() {
	_ = godotenv.Load()

	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.Load(path)
		},
		Bootstrap: func(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			cfg := carrier.(*app.Config)
			res, err := bootstrap.Run(bootstrap.Options{
				Config:   cfg.CoreConfig(),
				Database: cfg.Database,
			})
			if err != nil {
				return nil, err
			}
			return bot.New(cfg, res.DB)
		},
	})
	if err != nil {
		log.Fatalf("gatebot: %v", err)
	}
}
