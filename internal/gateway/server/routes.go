package server

import (
	"net/http"

	"go.uber.org/zap"

	"bizdiag/internal/gateway/handler"
	"bizdiag/internal/gateway/handler/events"
	"bizdiag/internal/gateway/handler/rpc"
	"bizdiag/internal/gateway/middleware"
)

type Handlers struct {
	Diagnosis *rpc.DiagnosisHandler
	Cases     *rpc.CaseHandler
	Todos     *rpc.TodoHandler
	Events    *events.Handler
	Debug     *handler.DebugHandler
}

func NewMux(h Handlers, allowedOrigins []string, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// RPC Handlers
	mux.Handle(rpc.NewDiagnosisServiceHandler(h.Diagnosis))
	mux.Handle(rpc.NewCaseServiceHandler(h.Cases))
	mux.Handle(rpc.NewTodoServiceHandler(h.Todos))

	// Streaming
	mux.Handle("/events", h.Events)

	// Debug Handlers
	mux.HandleFunc("/healthz", handler.HandleHealth)
	if h.Debug != nil {
		mux.HandleFunc("/debug/frontend-trace", h.Debug.HandleFrontendTrace)
		mux.HandleFunc("/debug/cache", h.Debug.HandleCacheStats)
	}

	// Middleware
	return middleware.Logging(log)(middleware.CORS(allowedOrigins)(mux))
}
