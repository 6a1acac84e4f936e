package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/cloudx-io/openmint/core"
	"github.com/cloudx-io/openmint/receipt"
	"github.com/cloudx-io/openmint/registry"
)

// Server serves auction house operations over one-shot JSON connections:
// the client writes a request and half-closes, the server writes a response
// and closes. Workers read connections concurrently but take turns through
// the engine: mu serializes request handling, leaving the engine's
// reentrancy guard to catch only nested calls from receive hooks.
type Server struct {
	mu       sync.Mutex
	cfg      Config
	ledger   *core.NativeLedger
	supply   *core.SupplyLedger
	registry *registry.Registry
	engine   *core.Engine
	signer   *receipt.Signer
}

func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Printf("ERROR: Failed to close listener: %v", err)
		}
	}()

	log.Printf("INFO: Auction house listening on %s", listener.Addr())

	semaphore := make(chan struct{}, s.cfg.MaxWorkers)
	log.Printf("INFO: Worker pool initialized with %d max concurrent workers", s.cfg.MaxWorkers)

	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Printf("ERROR: Failed to accept connection: %v", err)
			continue
		}

		// Acquire worker slot - immediate rejection if pool full
		select {
		case semaphore <- struct{}{}:
			go func(c net.Conn) {
				defer func() { <-semaphore }() // Release worker slot
				s.handleConnection(c)
			}(conn)
		default:
			log.Printf("INFO: No workers available, rejecting connection (pool full)")
			if err := conn.Close(); err != nil {
				log.Printf("ERROR: Failed to close rejected connection: %v", err)
			}
		}
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Panic recovered in handleConnection: %v", r)
		}
		if err := conn.Close(); err != nil {
			log.Printf("ERROR: Failed to close connection: %v", err)
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		log.Printf("ERROR: Failed to read request: %v", err)
		return
	}

	response := s.handleRequest(buf.Bytes())

	data, err := json.Marshal(response)
	if err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
		return
	}
	if _, err := conn.Write(data); err != nil {
		log.Printf("ERROR: Failed to write response: %v", err)
	}
}
