package httpctrl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/battmock/battmock/internal/battery"
	"github.com/battmock/battmock/internal/ports"
)

type Server struct {
	svc      ports.BatteryService
	srv      *http.Server
	deviceID string
}

// New returns a runnable server.
func New(svc ports.BatteryService, addr string, deviceID string) *Server {
	mux := http.NewServeMux()
	s := &Server{svc: svc, deviceID: deviceID}

	// Read
	mux.HandleFunc("GET /v1", s.handleGet)

	// Write: one endpoint per variable
	mux.HandleFunc("POST /v1/brightness", s.handlePostBrightness)
	mux.HandleFunc("POST /v1/cpu_load", s.handlePostCPULoad)
	mux.HandleFunc("POST /v1/network", s.handlePostNetwork)
	mux.HandleFunc("POST /v1/gps", s.handlePostGPS)
	mux.HandleFunc("POST /v1/background", s.handlePostBackground)
	mux.HandleFunc("POST /v1/ambient_temperature", s.handlePostAmbient)
	mux.HandleFunc("POST /v1/reset", s.handlePostReset)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// ---- DTOs ----

type snapshotDTO struct {
	DeviceID            string  `json:"device_id"`
	SOC                 float64 `json:"soc"`
	Temperature         float64 `json:"temperature"`
	AmbientTemperature  float64 `json:"ambient_temperature"`
	PowerW              float64 `json:"power_w"`
	CurrentA            float64 `json:"current_a"`
	EffectiveCapacityAh float64 `json:"effective_capacity_ah"`
	Brightness          float64 `json:"brightness"`
	CPULoad             float64 `json:"cpu_load"`
	Network             bool    `json:"network"`
	GPS                 bool    `json:"gps"`
	Background          bool    `json:"background"`
}

func toDTO(s battery.Snapshot) snapshotDTO {
	return snapshotDTO{
		SOC:                 s.SOC,
		Temperature:         s.Temperature,
		AmbientTemperature:  s.AmbientTemperature,
		PowerW:              s.Power,
		CurrentA:            s.Current,
		EffectiveCapacityAh: s.EffectiveCapacity,
		Brightness:          s.Usage.Brightness,
		CPULoad:             s.Usage.CPULoad,
		Network:             s.Usage.Network,
		GPS:                 s.Usage.GPS,
		Background:          s.Usage.Background,
	}
}

// ---- Handlers ----

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request) {
	s.respondSnapshot(w)
}

func (s *Server) handlePostBrightness(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		s.svc.SetBrightness(v)
		return nil
	})
}

func (s *Server) handlePostCPULoad(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		s.svc.SetCPULoad(v)
		return nil
	})
}

func (s *Server) handlePostNetwork(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v bool) error {
		s.svc.SetNetwork(v)
		return nil
	})
}

func (s *Server) handlePostGPS(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v bool) error {
		s.svc.SetGPS(v)
		return nil
	})
}

func (s *Server) handlePostBackground(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v bool) error {
		s.svc.SetBackground(v)
		return nil
	})
}

func (s *Server) handlePostAmbient(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		s.svc.SetAmbient(v)
		return nil
	})
}

func (s *Server) handlePostReset(w http.ResponseWriter, r *http.Request) {
	// body: {"value": 1.0} where value is the state of charge to reset to
	postValue(s, w, r, func(v float64) error {
		s.svc.Reset(v)
		return nil
	})
}

// ---- generic helpers ----
func (s *Server) respondSnapshot(w http.ResponseWriter) {
	dto := toDTO(s.svc.Get())
	dto.DeviceID = s.deviceID
	writeJSON(w, http.StatusOK, dto)
}

func postValue[T any](s *Server, w http.ResponseWriter, r *http.Request, apply func(T) error) {
	dec := json.NewDecoder(r.Body)
	var req struct {
		Value *T `json:"value"`
	}
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Value == nil {
		writeErr(w, http.StatusBadRequest, "missing field 'value'")
		return
	}

	if err := apply(*req.Value); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondSnapshot(w)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
