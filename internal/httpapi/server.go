// Package httpapi exposes the single HTTP ingress endpoint used to
// register a new watched contract.
package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/YatsauAliaksei/chain-scraper/internal/abidecoder"
	"github.com/YatsauAliaksei/chain-scraper/internal/chainmodel"
	"github.com/YatsauAliaksei/chain-scraper/internal/processor"
)

// Server serves the ABI-upload ingress endpoint.
type Server struct {
	mux       *http.ServeMux
	processor *processor.Processor
}

// NewServer builds a server with basic logging and panic-recovery
// middlewares wrapping a single route.
func NewServer(proc *processor.Processor) *Server {
	mux := http.NewServeMux()
	s := &Server{mux: mux, processor: proc}
	mux.HandleFunc("/abi/upload/", s.handleUpload)
	return s
}

// Run starts the HTTP server on the given port, blocking until it
// exits with an error.
func (s *Server) Run(port uint) error {
	addr := fmt.Sprintf(":%d", port)
	handler := s.recoveryMiddleware(s.loggingMiddleware(s.mux))
	logrus.Infof("HTTP ingress listening on %s", addr)
	return http.ListenAndServe(addr, handler)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logrus.Infof("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logrus.Errorf("panic recovered: %v", rec)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// handleUpload implements POST /abi/upload/{address}. The handler
// never blocks on traversal or indexing work; the scheduled scraper
// picks up the new contract on its next tick.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	address := strings.ToLower(strings.TrimPrefix(r.URL.Path, "/abi/upload/"))
	if address == "" {
		http.Error(w, "address missing", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if _, err := abidecoder.Parse(body); err != nil {
		http.Error(w, fmt.Sprintf("failed to parse abi: %v", err), http.StatusBadRequest)
		return
	}

	contract := chainmodel.NewContract(address, string(body))
	if err := s.processor.SaveContract(r.Context(), contract); err != nil {
		http.Error(w, fmt.Sprintf("failed to save contract: %v", err), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "ABI saved successfully. Address: %s", address)
}
