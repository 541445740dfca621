// Package server streams the solver's front buffer to websocket clients and
// feeds their light updates back into the solver.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voxelradiosity/logger"
	"voxelradiosity/solver"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Server broadcasts frames and events to every connected client
type Server struct {
	solver   *solver.Solver
	interval time.Duration
	planes   PlanesMessage

	clients      map[*websocket.Conn]*sync.Mutex
	clientsMutex sync.RWMutex
}

// New creates a server for s that pushes a frame at most every interval
func New(s *solver.Solver, interval time.Duration) *Server {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Server{
		solver:   s,
		interval: interval,
		planes:   planesMessage(s.Scene()),
		clients:  make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// ListenAndServe serves on addr and broadcasts events until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string, events <-chan solver.Event) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	go s.Run(ctx, events)
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()

	logger.Logger().Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run forwards solver events and pushes a frame on every tick where the
// solver has swapped since the last one
func (s *Server) Run(ctx context.Context, events <-chan solver.Event) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var lastSent uint64
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if msg, ok := eventMessage(ev); ok {
				s.broadcast(func(conn *websocket.Conn) error { return conn.WriteJSON(msg) })
			}
		case <-ticker.C:
			if s.solver.Buffer().Iteration() == lastSent {
				continue
			}
			iteration, frame := s.solver.Buffer().Snapshot()
			data := EncodeFrame(iteration, frame)
			s.broadcast(func(conn *websocket.Conn) error {
				return conn.WriteMessage(websocket.BinaryMessage, data)
			})
			lastSent = iteration
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	log := logger.Logger()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	// hold the writer lock until the client has the planes and current frame
	connMutex := &sync.Mutex{}
	connMutex.Lock()
	s.clientsMutex.Lock()
	s.clients[conn] = connMutex
	s.clientsMutex.Unlock()
	defer func() {
		s.clientsMutex.Lock()
		delete(s.clients, conn)
		s.clientsMutex.Unlock()
	}()

	err = conn.WriteJSON(s.planes)
	if err == nil && s.solver.Buffer().Iteration() > 0 {
		iteration, frame := s.solver.Buffer().Snapshot()
		err = conn.WriteMessage(websocket.BinaryMessage, EncodeFrame(iteration, frame))
	}
	connMutex.Unlock()
	if err != nil {
		log.Warn("websocket write failed", "err", err)
		return
	}
	log.Info("client connected", "remote", r.RemoteAddr)

	for {
		var msg InputMessage
		if err := conn.ReadJSON(&msg); err != nil {
			log.Debug("websocket read ended", "remote", r.RemoteAddr, "err", err)
			return
		}
		in, err := ParseInput(msg)
		if err != nil {
			log.Warn("ignoring client message", "err", err)
			continue
		}
		if !s.solver.Send(in) {
			log.Warn("solver stopped, dropping input", "type", msg.Type)
		}
	}
}

// broadcast writes to every client, dropping the ones that fail
func (s *Server) broadcast(write func(*websocket.Conn) error) {
	s.clientsMutex.RLock()
	clientsToRemove := []*websocket.Conn{}
	for client, mutex := range s.clients {
		mutex.Lock()
		err := write(client)
		mutex.Unlock()
		if err != nil {
			logger.Logger().Warn("websocket write failed", "err", err)
			client.Close()
			clientsToRemove = append(clientsToRemove, client)
		}
	}
	s.clientsMutex.RUnlock()

	// Remove failed clients
	if len(clientsToRemove) > 0 {
		s.clientsMutex.Lock()
		for _, client := range clientsToRemove {
			delete(s.clients, client)
		}
		s.clientsMutex.Unlock()
	}
}

// Clients returns the number of connected clients
func (s *Server) Clients() int {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()
	return len(s.clients)
}
