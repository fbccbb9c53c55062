// internal/pkg/middleware/middleware.go
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/auth"
	"storefront/internal/pkg/httpx"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/metrics"
)

// Tracing 提取上游传来的追踪上下文并开启一个 server span
func Tracing(serviceName string) func(http.Handler) http.Handler {
	tracer := otel.Tracer(serviceName)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			span.SetAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger 把带请求信息的 zerolog logger 注入 context，
// 并在请求结束时记录访问日志和耗时指标。
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		l := zlog.With().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		ctx := logger.WithContext(r.Context(), l)

		next.ServeHTTP(ww, r.WithContext(ctx))

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		metrics.HTTPRequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).
			Observe(elapsed.Seconds())

		var evt *zerolog.Event
		if ww.Status() >= http.StatusInternalServerError {
			evt = logger.Ctx(ctx).Error()
		} else {
			evt = logger.Ctx(ctx).Info()
		}
		evt.Int("status", ww.Status()).Dur("elapsed", elapsed).Msg("request handled")
	})
}

// Authenticate 从 Authorization 头解析会话，失败返回 401
func Authenticate(v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httpx.WriteJSON(w, http.StatusUnauthorized, httpx.ErrorBody{Error: "missing bearer token"})
				return
			}
			session, err := v.Verify(token)
			if err != nil {
				logger.Ctx(r.Context()).Warn().Err(err).Msg("rejected access token")
				httpx.WriteJSON(w, http.StatusUnauthorized, httpx.ErrorBody{Error: "invalid bearer token"})
				return
			}
			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("user.id", session.UserID))
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
		})
	}
}

// RequireAdmin 只允许管理员会话通过
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := auth.FromContext(r.Context())
		if !ok || !s.IsAdmin() {
			httpx.WriteJSON(w, http.StatusForbidden, httpx.ErrorBody{Error: "admin role required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Session 取出中间件解析好的会话；路由都挂在 Authenticate 之后，所以这里总是有值。
func Session(r *http.Request) auth.Session {
	s, _ := auth.FromContext(r.Context())
	return s
}
