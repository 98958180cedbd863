package main

import (
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andrew-blake/melcloudhome-sub001/cmd"
)

func main() {
	app := &cli.App{
		Name:   "melcloudhome",
		Usage:  "cloud synchronization and control daemon for MELCloud Home appliances",
		Action: cmd.ServeCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "melcloud-username",
				EnvVars:  []string{"MELCLOUD_USERNAME"},
				Required: true,
			},
			&cli.StringFlag{
				Name:     "melcloud-password",
				EnvVars:  []string{"MELCLOUD_PASSWORD"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "melcloud-base-url",
				EnvVars: []string{"MELCLOUD_BASE_URL"},
				Value:   "https://api.melcloudhome.com",
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				EnvVars: []string{"POLL_INTERVAL"},
				Value:   60 * time.Second,
			},
			&cli.DurationFlag{
				Name:    "debounce-window",
				EnvVars: []string{"DEBOUNCE_WINDOW"},
				Value:   2 * time.Second,
			},
			&cli.IntFlag{
				Name:    "stale-after",
				EnvVars: []string{"STALE_AFTER"},
				Value:   3,
			},
			&cli.StringFlag{
				Name:    "mqtt-host",
				EnvVars: []string{"MQTT_HOST"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-client-id",
				EnvVars: []string{"MQTT_CLIENT_ID"},
				Value:   "melcloudhome",
			},
			&cli.StringFlag{
				Name:    "mqtt-user",
				EnvVars: []string{"MQTT_USER"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-pass",
				EnvVars: []string{"MQTT_PASS"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "listen-address",
				EnvVars: []string{"LISTEN_ADDRESS"},
				Value:   "0.0.0.0:8000",
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "info",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
