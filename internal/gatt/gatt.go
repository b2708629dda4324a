// Package gatt exposes the protocol engine as a BLE GATT peripheral: one
// custom service with a writable command characteristic and a notifying
// data characteristic.
package gatt

import (
	"fmt"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/vitalsense/ecglogd/internal/config"
	"github.com/vitalsense/ecglogd/internal/engine"
)

// Server owns the BLE adapter, the advertised service, and the link
// between GATT events and the engine. It implements engine.Notifier over
// the data characteristic.
type Server struct {
	cfg config.Config
	eng *engine.Engine
	log *zap.Logger

	adapter  *bluetooth.Adapter
	dataChar bluetooth.Characteristic
	adv      *bluetooth.Advertisement
}

// NewServer builds a server around the platform's default adapter. Bind an
// engine, then call Start to bring the peripheral up.
func NewServer(cfg config.Config, log *zap.Logger) *Server {
	return &Server{
		cfg:     cfg,
		log:     log,
		adapter: bluetooth.DefaultAdapter,
	}
}

// Bind attaches the engine that receives writes and connectivity events.
func (s *Server) Bind(eng *engine.Engine) { s.eng = eng }

// Start enables the BLE stack, registers the service, and begins
// advertising. Peer connect and disconnect events and command writes are
// forwarded to the engine from the stack's callback goroutines.
func (s *Server) Start() error {
	if err := s.adapter.Enable(); err != nil {
		return fmt.Errorf("failed to enable BLE stack: %w", err)
	}

	serviceUUID, err := bluetooth.ParseUUID(s.cfg.ServiceUUID)
	if err != nil {
		return fmt.Errorf("bad service UUID: %w", err)
	}
	commandUUID, err := bluetooth.ParseUUID(s.cfg.CommandCharUUID)
	if err != nil {
		return fmt.Errorf("bad command characteristic UUID: %w", err)
	}
	dataUUID, err := bluetooth.ParseUUID(s.cfg.DataCharUUID)
	if err != nil {
		return fmt.Errorf("bad data characteristic UUID: %w", err)
	}

	s.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		s.log.Info("peer state changed",
			zap.String("device", device.Address.String()),
			zap.Bool("connected", connected))
		s.eng.HandlePeerState(connected)
	})

	service := bluetooth.Service{
		UUID: serviceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				UUID: commandUUID,
				Flags: bluetooth.CharacteristicWritePermission |
					bluetooth.CharacteristicWriteWithoutResponsePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					if offset != 0 {
						s.log.Warn("dropping offset command write", zap.Int("offset", offset))
						return
					}
					s.eng.HandleCommandWrite(value)
				},
			},
			{
				Handle: &s.dataChar,
				UUID:   dataUUID,
				Flags: bluetooth.CharacteristicNotifyPermission |
					bluetooth.CharacteristicReadPermission,
			},
		},
	}
	if err := s.adapter.AddService(&service); err != nil {
		return fmt.Errorf("failed to add service: %w", err)
	}

	s.adv = s.adapter.DefaultAdvertisement()
	if err := s.adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    s.cfg.DeviceName,
		ServiceUUIDs: []bluetooth.UUID{serviceUUID},
	}); err != nil {
		return fmt.Errorf("failed to configure advertisement: %w", err)
	}
	if err := s.adv.Start(); err != nil {
		return fmt.Errorf("failed to start advertising: %w", err)
	}

	s.log.Info("advertising",
		zap.String("name", s.cfg.DeviceName),
		zap.String("service", s.cfg.ServiceUUID))
	return nil
}

// Stop ends advertising. Established connections are left to the stack.
func (s *Server) Stop() error {
	if s.adv == nil {
		return nil
	}
	return s.adv.Stop()
}

// Notify sends one frame as a data characteristic notification. Write
// errors are logged and dropped; the protocol has no delivery guarantee to
// offer anyway.
func (s *Server) Notify(frame []byte) {
	if _, err := s.dataChar.Write(frame); err != nil {
		s.log.Debug("notification write failed", zap.Error(err))
	}
}
