package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/m04kA/SMC-ReservationService/internal/api/handlers"
)

const msgTooManyRequests = "слишком много запросов"

// RateLimit фиксированное окно на IP клиента в Redis.
// Если Redis недоступен, запрос пропускается: колбэки провайдера не должны теряться
func RateLimit(rdb *redis.Client, limit int, window time.Duration, log Logger) mux.MiddlewareFunc {
	if window < time.Second {
		window = time.Second
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			bucket := time.Now().Unix() / int64(window.Seconds())
			key := fmt.Sprintf("rate_limit:%s:%d", clientIP(r), bucket)

			pipe := rdb.TxPipeline()
			incr := pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, window)
			if _, err := pipe.Exec(ctx); err != nil {
				log.Warn("RateLimit: redis unavailable, request allowed: %v", err)
				next.ServeHTTP(w, r)
				return
			}

			if incr.Val() > int64(limit) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				handlers.RespondError(w, http.StatusTooManyRequests, msgTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP первый адрес из X-Forwarded-For, иначе адрес соединения
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
