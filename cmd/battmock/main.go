package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/battmock/battmock/cmd/app"
	"github.com/battmock/battmock/internal/battery"
	httpctrl "github.com/battmock/battmock/internal/controllers/http"
	modbusctrl "github.com/battmock/battmock/internal/controllers/modbus"
	mqttctrl "github.com/battmock/battmock/internal/controllers/mqtt"
	"github.com/battmock/battmock/internal/device"
	"github.com/battmock/battmock/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "battmock",
		Short:         "Mock smartphone battery served over HTTP, MQTT and Modbus",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file (.yaml/.yml/.json)")
	cmd.AddCommand(newSimulateCmd())
	return cmd
}

func serve(ctx context.Context, configPath string) error {
	log := logging.New("battmock")

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return err
	}

	b, err := battery.New(cfg.Params())
	if err != nil {
		return err
	}
	applyUsage(b, cfg.InitialUsage())
	dev := device.New(cfg.DeviceID, b)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 4)

	go func() {
		errCh <- dev.B.Run(ctx, cfg.Tick)
	}()

	if cfg.Controllers.HTTP.Enabled {
		srv := httpctrl.New(dev.B, cfg.Controllers.HTTP.Addr, dev.ID)
		log.Info().Str("addr", cfg.Controllers.HTTP.Addr).Msg("http controller listening")
		go func() {
			errCh <- srv.Run(ctx)
		}()
	}

	if cfg.Controllers.MQTT.Enabled {
		ctrl, err := mqttctrl.New(dev.B, mqttctrl.Config{
			DeviceID:        dev.ID,
			BrokerURL:       cfg.Controllers.MQTT.BrokerURL,
			ClientID:        cfg.Controllers.MQTT.ClientID,
			BaseTopic:       cfg.Controllers.MQTT.BaseTopic,
			QoS:             cfg.Controllers.MQTT.QoS,
			RetainSnapshot:  cfg.Controllers.MQTT.RetainSnapshot,
			PublishInterval: cfg.Controllers.MQTT.PublishInterval,
			Username:        cfg.Controllers.MQTT.Username,
			Password:        cfg.Controllers.MQTT.Password,
		})
		if err != nil {
			return err
		}
		log.Info().Str("broker", cfg.Controllers.MQTT.BrokerURL).Msg("mqtt controller starting")
		go func() {
			errCh <- ctrl.Run(ctx)
		}()
	}

	if cfg.Controllers.Modbus.Enabled {
		ctrl, err := modbusctrl.New(dev.B, modbusctrl.Config{
			DeviceID: dev.ID,
			Addr:     cfg.Controllers.Modbus.Addr,
			UnitID:   cfg.Controllers.Modbus.UnitID,
		})
		if err != nil {
			return err
		}
		log.Info().Str("addr", cfg.Controllers.Modbus.Addr).Msg("modbus controller listening")
		go func() {
			errCh <- ctrl.Run(ctx)
		}()
	}

	log.Info().Str("device_id", dev.ID).Dur("tick", cfg.Tick).Msg("device running")

	err = <-errCh
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("device stopped")
		return err
	}
	log.Info().Msg("shutting down")
	return nil
}

func applyUsage(b *battery.Battery, u battery.UsageInput) {
	b.SetBrightness(u.Brightness)
	b.SetCPULoad(u.CPULoad)
	b.SetNetwork(u.Network)
	b.SetGPS(u.GPS)
	b.SetBackground(u.Background)
}
