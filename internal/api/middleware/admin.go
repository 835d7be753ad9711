package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-ReservationService/internal/api/handlers"
)

// AdminKeyHeader заголовок с ключом администратора
const AdminKeyHeader = "X-Admin-Key"

const msgAdminKeyRequired = "требуется ключ администратора"

// AdminKey пропускает только запросы с верным X-Admin-Key. Пустой ключ в конфигурации закрывает доступ полностью
func AdminKey(key string, log Logger) mux.MiddlewareFunc {
	expected := []byte(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(AdminKeyHeader))
			if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
				log.Warn("%s %s - admin key rejected from %s", r.Method, r.URL.Path, clientIP(r))
				handlers.RespondUnauthorized(w, msgAdminKeyRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
