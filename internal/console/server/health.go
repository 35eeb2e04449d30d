package server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// BackendHealthService имя сервиса в gRPC health: доступен ли бэкенд библиотеки
const BackendHealthService = "libra.console.Backend"

// BackendHealth отражает состояние Circuit Breaker бэкенда в стандартном gRPC health.
// Пустое имя сервиса ("") описывает сам процесс и всегда SERVING.
type BackendHealth struct {
	srv *health.Server
}

func NewBackendHealth() *BackendHealth {
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	srv.SetServingStatus(BackendHealthService, healthpb.HealthCheckResponse_SERVING)
	return &BackendHealth{srv: srv}
}

// Register подключает health к gRPC серверу
func (h *BackendHealth) Register(g *grpc.Server) {
	healthpb.RegisterHealthServer(g, h.srv)
}

// SetBackendOpen вызывается при смене состояния предохранителя
func (h *BackendHealth) SetBackendOpen(open bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if open {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.srv.SetServingStatus(BackendHealthService, status)
}

// Shutdown переводит все сервисы в NOT_SERVING перед остановкой
func (h *BackendHealth) Shutdown() {
	h.srv.Shutdown()
}

func (h *BackendHealth) Server() healthpb.HealthServer {
	return h.srv
}
