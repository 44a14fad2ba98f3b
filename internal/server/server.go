// Package server holds the HTTP plumbing shared by every service handler:
// request ids, tracing, access logging and the error body format.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Vivek-k24/foodbiz/internal/logger"
)

const tracerName = "github.com/Vivek-k24/foodbiz/internal/server"

type Options struct {
	Logger         *logger.Logger
	TracerProvider trace.TracerProvider
}

// New returns an echo instance with the shared middleware installed. Service
// handlers register their routes on it.
func New(opts Options) *echo.Echo {
	if opts.TracerProvider == nil {
		opts.TracerProvider = noop.NewTracerProvider()
	}
	log := opts.Logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator:    uuid.NewString,
		TargetHeader: echo.HeaderXRequestID,
	}))
	e.Use(accessLog(log))
	e.Use(tracing(opts.TracerProvider.Tracer(tracerName)))
	return e
}

// tracing starts a server span per request and stores it on the request
// context, where TraceContext picks up its id.
func tracing(tracer trace.Tracer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			route := c.Path()
			if route == "" {
				route = req.URL.Path
			}
			ctx, span := tracer.Start(req.Context(), req.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", req.Method),
					attribute.String("http.route", route),
					attribute.String("http.request_id", RequestID(c)),
				))
			defer span.End()
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			status := c.Response().Status
			var he *echo.HTTPError
			if err != nil && errors.As(err, &he) {
				status = he.Code
			}
			span.SetAttributes(attribute.Int("http.response.status_code", status))
			if err != nil || status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
				if err != nil {
					span.RecordError(err)
				}
			}
			return err
		}
	}
}

// accessLog logs start and completion of every request.
func accessLog(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			requestID := RequestID(c)

			log.Debug("request_started", fmt.Sprintf("%s %s", req.Method, req.URL.Path), requestID, map[string]interface{}{
				"method":      req.Method,
				"path":        req.URL.Path,
				"remote_addr": req.RemoteAddr,
				"user_agent":  req.UserAgent(),
			})

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			log.Debug("request_completed", fmt.Sprintf("%s %s - %d", req.Method, req.URL.Path, status), requestID, map[string]interface{}{
				"method":      req.Method,
				"path":        req.URL.Path,
				"status_code": status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			return nil
		}
	}
}
