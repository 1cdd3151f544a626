package handler

import (
	"io"
	"net/http"

	"payrelay/pkg/response"

	"github.com/gin-gonic/gin"
)

// PrometheusWriter renders counters in Prometheus text format.
type PrometheusWriter interface {
	WritePrometheus(w io.Writer)
}

// Counters serves a counter snapshot as JSON, or as Prometheus text when
// called with ?format=prometheus and prom is set.
func Counters(snapshot func() map[string]uint64, prom PrometheusWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if prom != nil && c.Query("format") == "prometheus" {
			c.Status(http.StatusOK)
			c.Header("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
			prom.WritePrometheus(c.Writer)
			return
		}
		response.OK(c, snapshot())
	}
}
