package http

import (
	"go.uber.org/fx"

	carttransport "github.com/Additional-Code/menumate/internal/transport/http/cart"
	ordertransport "github.com/Additional-Code/menumate/internal/transport/http/order"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	carttransport.Module,
	ordertransport.Module,
)
