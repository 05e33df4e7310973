// ABOUTME: TUI update helpers for server
// ABOUTME: Functions to send server state updates to TUI
package server

import (
	"sort"
	"time"
)

// status collects the current server state
func (s *Server) status() ServerStatus {
	s.clientsMu.RLock()
	clients := make([]ClientInfo, 0, len(s.clients))
	for _, client := range s.clients {
		clients = append(clients, ClientInfo{
			Name:      client.Name,
			ID:        client.ID,
			Connected: time.Since(client.connected),
		})
	}
	s.clientsMu.RUnlock()

	sort.Slice(clients, func(i, j int) bool { return clients[i].Name < clients[j].Name })

	stats := s.engine.Stats()
	source := stats.Source
	if source == "" {
		source = "Initializing..."
	}

	return ServerStatus{
		Name:    s.config.Name,
		Port:    s.config.Port,
		Source:  source,
		Output:  s.config.Output.String(),
		Codec:   s.config.Codec,
		Clients: clients,
		Stats:   stats,
	}
}

// updateTUI sends current server state to TUI
func (s *Server) updateTUI() {
	if s.tui == nil {
		return
	}
	s.tui.Update(s.status())
}

// refreshTUI pushes stage counters to the TUI once a second until Stop
func (s *Server) refreshTUI() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.updateTUI()
		case <-s.stopChan:
			return
		}
	}
}
