// Package service exposes a node over HTTP. Handlers turn requests into
// reactor events carrying a Responder and wait for the component's answer.
package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/mosaicnetworks/reactor/src/components/apiserver"
	"github.com/mosaicnetworks/reactor/src/components/deploybuffer"
	"github.com/mosaicnetworks/reactor/src/components/gossiper"
	"github.com/mosaicnetworks/reactor/src/components/storage"
	"github.com/mosaicnetworks/reactor/src/deploy"
	"github.com/mosaicnetworks/reactor/src/effect"
	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

// MaxBodySize bounds request bodies.
const MaxBodySize = 1 << 20

// Submitter is the part of the reactor the service uses.
type Submitter interface {
	Submit(ev effect.Event) error
}

// Service ...
type Service struct {
	bindAddress string
	reactor     Submitter
	timeout     time.Duration
	mux         *http.ServeMux
	server      *http.Server
	jh          *codec.JsonHandle
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, r Submitter, timeout time.Duration, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		reactor:     r,
		timeout:     timeout,
		mux:         http.NewServeMux(),
		jh:          new(codec.JsonHandle),
		logger:      logger,
	}

	service.registerHandlers()

	service.server = &http.Server{
		Addr:    bindAddress,
		Handler: service.mux,
	}

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering API handlers")
	s.mux.HandleFunc("POST /deploy", s.makeHandler(s.PostDeploy))
	s.mux.HandleFunc("GET /deploy/{hash}", s.makeHandler(s.GetDeploy))
	s.mux.HandleFunc("GET /status", s.makeHandler(s.GetStatus))
	s.mux.HandleFunc("POST /gossip", s.makeHandler(s.PostGossip))
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

		fn(w, r)
	}
}

// Handler returns the API handlers.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call. It returns nil after
// Shutdown.
func (s *Service) Serve() error {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving API")

	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error(err)
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for active requests until ctx is done.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// PostDeploy submits the deploy in the request body and answers with its
// ticket and outcome.
func (s *Service) PostDeploy(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var d deploy.Deploy
	if err := d.Unmarshal(body); err != nil {
		s.logger.WithError(err).Debug("Decoding deploy")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	responder, reply := effect.NewResponder[apiserver.Receipt]()
	receipt, ok := await(s, w, r, apiserver.Submit{Deploy: &d, Reply: responder}, reply)
	if !ok {
		return
	}

	status := http.StatusOK
	if !receipt.Outcome.Accepted {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, receipt)
}

// GetDeploy returns a stored deploy.
func (s *Service) GetDeploy(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")

	responder, reply := effect.NewResponder[storage.GetResult]()
	res, ok := await(s, w, r, apiserver.Lookup{Hash: hash, Reply: responder}, reply)
	if !ok {
		return
	}

	if !res.Found {
		http.Error(w, "deploy not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, res.Deploy)
}

// GetStatus returns the node counters.
func (s *Service) GetStatus(w http.ResponseWriter, r *http.Request) {
	responder, reply := effect.NewResponder[apiserver.Status]()
	status, ok := await(s, w, r, apiserver.StatusRequest{Reply: responder}, reply)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

// PostGossip accepts deploys pushed by a peer's gossiper. They go through the
// same checks as client deploys.
func (s *Service) PostGossip(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	items, err := gossiper.DecodeItems(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	deploys := make([]*deploy.Deploy, 0, len(items))
	for _, it := range items {
		d := new(deploy.Deploy)
		if err := d.Unmarshal(it.Payload); err != nil {
			s.logger.WithError(err).WithField("item", it.ID).Debug("Decoding gossiped deploy")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		deploys = append(deploys, d)
	}

	for _, d := range deploys {
		if err := s.reactor.Submit(deploybuffer.SubmitDeploy{Deploy: d}); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// await submits ev and waits for the reply. On failure it writes the error
// response and returns false.
func await[T any](s *Service, w http.ResponseWriter, r *http.Request, ev effect.Event, reply <-chan T) (T, bool) {
	var zero T

	if err := s.reactor.Submit(ev); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return zero, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	select {
	case v := <-reply:
		return v, true
	case <-ctx.Done():
		s.logger.WithField("kind", ev.Kind()).Warn("Timed out waiting for the reactor")
		http.Error(w, "timed out", http.StatusGatewayTimeout)
		return zero, false
	}
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := codec.NewEncoder(w, s.jh).Encode(v); err != nil {
		s.logger.WithError(err).Error("Encoding response")
	}
}
