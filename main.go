package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/pinnode/cmd"
	"github.com/smazurov/pinnode/internal/api"
	"github.com/smazurov/pinnode/internal/config"
	"github.com/smazurov/pinnode/internal/device"
	"github.com/smazurov/pinnode/internal/events"
	"github.com/smazurov/pinnode/internal/hal"
	"github.com/smazurov/pinnode/internal/influx"
	"github.com/smazurov/pinnode/internal/led"
	"github.com/smazurov/pinnode/internal/logging"
	"github.com/smazurov/pinnode/internal/metrics/collectors"
	"github.com/smazurov/pinnode/internal/metrics/exporters"
	"github.com/smazurov/pinnode/internal/mqtt"
	"github.com/smazurov/pinnode/internal/router"
	"github.com/smazurov/pinnode/internal/server"
	"github.com/smazurov/pinnode/internal/systemd"
	"github.com/smazurov/pinnode/internal/updater"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"pinnode.toml"`

	// Device port settings
	Port        string `help:"Device port to listen on" short:"p" default:":80" toml:"server.port" env:"SERVER_PORT"`
	ReadTimeout string `help:"Time a client has to send its request head" default:"5s" toml:"server.read_timeout" env:"SERVER_READ_TIMEOUT"`

	// Admin API settings
	AdminPort     string `help:"Admin API port, empty disables it" default:":8091" toml:"admin.port" env:"ADMIN_PORT"`
	AdminUsername string `help:"Admin API basic auth username" default:"" toml:"admin.username" env:"ADMIN_USERNAME"`
	AdminPassword string `help:"Admin API basic auth password or bcrypt hash" default:"" toml:"admin.password" env:"ADMIN_PASSWORD"`

	// Hardware settings
	Board        string `help:"Board backend (auto, periph, cdev, sim)" default:"auto" toml:"hardware.board" env:"HARDWARE_BOARD"`
	GPIOChip     string `help:"GPIO character device for the cdev backend" default:"gpiochip0" toml:"hardware.gpio_chip" env:"HARDWARE_GPIO_CHIP"`
	LED          string `help:"Indicator backend (auto, sysfs, pin, none)" default:"auto" toml:"hardware.led" env:"HARDWARE_LED"`
	LEDPin       int    `help:"Indicator pin for the pin backend" default:"25" toml:"hardware.led_pin" env:"HARDWARE_LED_PIN"`
	ADC          string `help:"Joystick ADC (iio, ads1115, ads1015, none)" default:"iio" toml:"hardware.adc" env:"HARDWARE_ADC"`
	ADCDevice    string `help:"IIO device directory for the joystick axes" default:"/sys/bus/iio/devices/iio:device0" toml:"hardware.adc_device" env:"HARDWARE_ADC_DEVICE"`
	ADCBus       string `help:"I2C bus of an ADS1x15, empty picks the first" default:"" toml:"hardware.adc_bus" env:"HARDWARE_ADC_BUS"`
	ADCAddress   int    `help:"I2C address of an ADS1x15" default:"72" toml:"hardware.adc_address" env:"HARDWARE_ADC_ADDRESS"`
	PWMFrequency int    `help:"PWM carrier frequency in Hz" default:"1000" toml:"hardware.pwm_frequency_hz" env:"HARDWARE_PWM_FREQUENCY_HZ"`

	// MQTT settings
	MQTTBroker string `help:"MQTT broker, empty disables the event mirror" default:"" toml:"mqtt.broker" env:"MQTT_BROKER"`
	MQTTTopic  string `help:"MQTT topic prefix" default:"pinnode" toml:"mqtt.topic" env:"MQTT_TOPIC"`

	// InfluxDB settings
	InfluxURL    string `help:"InfluxDB URL, empty disables the event sink" default:"" toml:"influx.url" env:"INFLUX_URL"`
	InfluxToken  string `help:"InfluxDB API token" default:"" toml:"influx.token" env:"INFLUX_TOKEN"`
	InfluxOrg    string `help:"InfluxDB organization" default:"" toml:"influx.org" env:"INFLUX_ORG"`
	InfluxBucket string `help:"InfluxDB bucket" default:"pinnode" toml:"influx.bucket" env:"INFLUX_BUCKET"`

	// Update settings
	UpdateRepository string `help:"GitHub repository for self-update, empty disables it" default:"smazurov/pinnode" toml:"update.repository" env:"UPDATE_REPOSITORY"`
	UpdatePrerelease bool   `help:"Include prereleases" default:"false" toml:"update.prerelease" env:"UPDATE_PRERELEASE"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingRouter  string `help:"Router logging level" default:"info" toml:"logging.router" env:"LOGGING_ROUTER"`
	LoggingServer  string `help:"Device server logging level" default:"info" toml:"logging.server" env:"LOGGING_SERVER"`
	LoggingHAL     string `help:"Hardware logging level" default:"info" toml:"logging.hal" env:"LOGGING_HAL"`
	LoggingLED     string `help:"Indicator logging level" default:"info" toml:"logging.led" env:"LOGGING_LED"`
	LoggingMQTT    string `help:"MQTT logging level" default:"info" toml:"logging.mqtt" env:"LOGGING_MQTT"`
	LoggingInflux  string `help:"InfluxDB logging level" default:"info" toml:"logging.influx" env:"LOGGING_INFLUX"`
	LoggingMetrics string `help:"Metrics logging level" default:"info" toml:"logging.metrics" env:"LOGGING_METRICS"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingUpdater string `help:"Updater logging level" default:"info" toml:"logging.updater" env:"LOGGING_UPDATER"`
}

func (o *Options) loggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"router":  o.LoggingRouter,
			"server":  o.LoggingServer,
			"hal":     o.LoggingHAL,
			"led":     o.LoggingLED,
			"mqtt":    o.LoggingMQTT,
			"influx":  o.LoggingInflux,
			"metrics": o.LoggingMetrics,
			"api":     o.LoggingAPI,
			"updater": o.LoggingUpdater,
		},
	}
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.SetLogCallback(collectors.LogCallback)
		logging.Initialize(opts.loggingConfig())

		logger := logging.GetLogger("main")

		readTimeout, err := time.ParseDuration(opts.ReadTimeout)
		if err != nil {
			logger.Warn("Invalid read timeout, using default", "value", opts.ReadTimeout, "error", err)
			readTimeout = server.DefaultReadTimeout
		}

		board, err := hal.New(logging.GetLogger("hal"), opts.Board, hal.Options{
			PWMFrequencyHz: opts.PWMFrequency,
			ADCKind:        opts.ADC,
			ADCDevice:      opts.ADCDevice,
			ADCBus:         opts.ADCBus,
			ADCAddress:     uint16(opts.ADCAddress),
			GPIOChip:       opts.GPIOChip,
		})
		if err != nil {
			logger.Error("Failed to initialise board", "error", err)
			os.Exit(1)
		}

		indicator, err := led.New(logging.GetLogger("led"), board, led.Options{Kind: opts.LED, Pin: opts.LEDPin})
		if err != nil {
			logger.Error("Failed to initialise indicator", "error", err)
			os.Exit(1)
		}

		// Create event bus for in-process event handling
		eventBus := events.New()

		deviceRouter := router.New(router.Options{
			State:     device.NewState(),
			Board:     board,
			LED:       indicator,
			Publisher: eventBus,
			Logger:    logging.GetLogger("router"),
		})
		deviceServer := server.New(deviceRouter, server.Options{
			ReadTimeout: readTimeout,
			Logger:      logging.GetLogger("server"),
		})

		eventCollector := collectors.NewEventCollector(eventBus)

		mqttClient := mqtt.New(mqtt.Config{Broker: opts.MQTTBroker, Topic: opts.MQTTTopic}, logging.GetLogger("mqtt"))
		mirror := mqtt.NewMirror(eventBus, mqttClient, logging.GetLogger("mqtt"))
		influxSink := influx.New(influx.Config{
			URL:    opts.InfluxURL,
			Token:  opts.InfluxToken,
			Org:    opts.InfluxOrg,
			Bucket: opts.InfluxBucket,
		}, eventBus, logging.GetLogger("influx"))

		var updateService updater.Service
		if opts.UpdateRepository != "" {
			updateService, err = updater.NewService(&updater.Options{
				Repository: opts.UpdateRepository,
				Prerelease: opts.UpdatePrerelease,
			})
			if err != nil {
				logger.Warn("Failed to create update service", "error", err)
				updateService = nil
			}
		}

		ctx, cancel := context.WithCancel(context.Background())

		var systemdManager *systemd.Manager
		if m, sdErr := systemd.NewManager(ctx, false); sdErr != nil {
			logger.Debug("systemd not available", "error", sdErr)
		} else {
			systemdManager = m
		}

		var adminServer *api.Server
		if opts.AdminPort != "" {
			apiOpts := &api.Options{
				AuthUsername:   opts.AdminUsername,
				AuthPassword:   opts.AdminPassword,
				Board:          board.Name(),
				LED:            indicator.Name(),
				Routes:         deviceRouter.Routes(),
				MetricsHandler: exporters.HTTPHandler(),
				UpdateService:  updateService,
			}
			// A nil *Manager must not become a non-nil interface
			if systemdManager != nil {
				apiOpts.Systemd = systemdManager
			}
			adminServer = api.NewServer(apiOpts)
		}

		loggingWatcher := config.NewConfigWatcher(opts.Config, config.LoadLoggingConfigFile, logging.GetLogger("config"))
		loggingWatcher.OnReload(func(cfg logging.Config) {
			logging.SetLevels(cfg)
			logger.Info("Logging levels reloaded", "level", cfg.Level)
		})

		notifier := systemd.NewNotifier(logging.GetLogger("systemd"))

		hooks.OnStart(func() {
			eventCollector.Start(ctx)
			mirror.Start(ctx)
			influxSink.Start(ctx)
			mqttClient.Connect()

			if watchErr := loggingWatcher.Start(); watchErr != nil {
				logger.Warn("Config watcher not started", "path", opts.Config, "error", watchErr)
			}

			if startErr := deviceServer.Start(opts.Port); startErr != nil {
				logger.Error("Failed to start device server", "port", opts.Port, "error", startErr)
				os.Exit(1)
			}

			notifier.Ready(fmt.Sprintf("device port %s", opts.Port))
			go notifier.Watchdog(ctx)

			if adminServer == nil {
				<-ctx.Done()
				return
			}

			logger.Info("Starting admin API", "port", opts.AdminPort)
			if startErr := adminServer.Start(opts.AdminPort); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start admin API", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			notifier.Stopping()

			if adminServer != nil {
				if stopErr := adminServer.Stop(); stopErr != nil {
					logger.Error("Error stopping admin API", "error", stopErr)
				}
			}
			if stopErr := deviceServer.Stop(); stopErr != nil {
				logger.Error("Error stopping device server", "error", stopErr)
			}

			if stopErr := loggingWatcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping config watcher", "error", stopErr)
			}
			mirror.Stop()
			influxSink.Stop()
			mqttClient.Disconnect()
			eventCollector.Stop()
			cancel()

			if systemdManager != nil {
				systemdManager.Close()
			}
			if closeErr := board.Close(); closeErr != nil {
				logger.Warn("Error closing board", "error", closeErr)
			}
		})
	})

	cli.Root().AddCommand(cmd.CreateProbeCmd())
	cli.Root().AddCommand(cmd.CreatePinsCmd())
	cli.Root().AddCommand(cmd.CreateUpdateCmd())
	cli.Root().AddCommand(cmd.CreateHashPasswordCmd())
	cli.Root().AddCommand(cmd.CreateVersionCmd())

	// Run the CLI
	cli.Run()
}
