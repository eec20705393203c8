package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency  = metric.NewHistogram("1m1s")
	DioSent          = metric.NewCounter("1m10s")
	DaoSent          = metric.NewCounter("1m10s")
	RplReceived      = metric.NewCounter("1m10s")
	RoutesRegistered = metric.NewCounter("1m10s")
	RoutesEvicted    = metric.NewCounter("1m10s")
	Diagnostics      = metric.NewCounter("1m10s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("rpl:DioSent", DioSent)
	expvar.Publish("rpl:DaoSent", DaoSent)
	expvar.Publish("rpl:Received", RplReceived)
	expvar.Publish("rpl:RoutesRegistered", RoutesRegistered)
	expvar.Publish("rpl:RoutesEvicted", RoutesEvicted)
	expvar.Publish("rpl:Diagnostics", Diagnostics)
	expvar.Publish("rpl:DispatchLatency (µs)", DispatchLatency)
}
