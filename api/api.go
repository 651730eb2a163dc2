// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/forkpoint/forkd/api/forks"
	"github.com/forkpoint/forkd/api/restutil"
	"github.com/forkpoint/forkd/fork"
	"github.com/forkpoint/forkd/log"
	"github.com/forkpoint/forkd/metrics"
)

var logger = log.WithContext("pkg", "api")

// Options api options.
type Options struct {
	AllowedOrigins  string
	EnableMetrics   bool
	EnableReqLogger bool
}

// New returns the api handler.
func New(dispatcher *fork.Dispatcher, opts Options) http.HandlerFunc {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	forks.New(dispatcher).Mount(router, "/forks")

	router.Path("/health").Methods(http.MethodGet).HandlerFunc(
		restutil.WrapHandlerFunc(func(w http.ResponseWriter, _ *http.Request) error {
			return restutil.WriteJSON(w, restutil.M{"healthy": true})
		}))

	if opts.EnableMetrics {
		router.Path("/metrics").Handler(metrics.HTTPHandler())
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)

	if opts.EnableReqLogger {
		handler = requestLoggerHandler(handler, logger)
	}

	return handler.ServeHTTP
}
