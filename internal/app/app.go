package app

import (
	"go.uber.org/fx"

	backenddriver "github.com/Additional-Code/menumate/internal/backend/driver"
	"github.com/Additional-Code/menumate/internal/cache"
	"github.com/Additional-Code/menumate/internal/config"
	"github.com/Additional-Code/menumate/internal/database"
	"github.com/Additional-Code/menumate/internal/logger"
	"github.com/Additional-Code/menumate/internal/messaging"
	"github.com/Additional-Code/menumate/internal/observability"
	grpcserver "github.com/Additional-Code/menumate/internal/server/grpc"
	httpserver "github.com/Additional-Code/menumate/internal/server/http"
	serviceorder "github.com/Additional-Code/menumate/internal/service/order"
	"github.com/Additional-Code/menumate/internal/session"
	"github.com/Additional-Code/menumate/internal/tenant"
	transporthttp "github.com/Additional-Code/menumate/internal/transport/http"
	"github.com/Additional-Code/menumate/internal/worker"
	workerorder "github.com/Additional-Code/menumate/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	backenddriver.Module,
	session.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP and gRPC servers on top of the core modules.
var HTTP = fx.Options(
	Core,
	tenant.Module,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
