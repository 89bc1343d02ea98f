package mcp

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dune/dune-analytics-mcp-server/internal/protocol"
)

// Handler builds the HTTP surface: POST a single JSON-RPC request to the
// root path, GET /health for liveness.
func Handler(server *Server, logger *logrus.Entry) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		reqID := uuid.NewString()
		var req protocol.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, protocol.Response{Error: &protocol.ResponseError{Code: protocol.CodeParseError, Message: "invalid JSON"}}, http.StatusBadRequest)
			return
		}

		resp, err := server.Handle(r.Context(), req)
		if err != nil {
			writeJSON(w, WriteError(req.ID, protocol.CodeInternalError, "internal error", err), http.StatusInternalServerError)
			return
		}
		logger.WithFields(logrus.Fields{
			"request_id": reqID,
			"method":     req.Method,
			"failed":     resp.Error != nil,
		}).Debug("handled request")

		writeJSON(w, resp, http.StatusOK)
	})

	return mux
}

// RunHTTP starts an HTTP server that serves MCP JSON-RPC requests via POST.
func RunHTTP(server *Server, addr string, logger *logrus.Entry) error {
	logger.Infof("HTTP MCP server listening on %s", addr)
	return http.ListenAndServe(addr, Handler(server, logger))
}

func writeJSON(w http.ResponseWriter, resp protocol.Response, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(resp)
}
