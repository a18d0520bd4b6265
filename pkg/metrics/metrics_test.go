package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should register its collectors there", func() {
				So(manager, ShouldNotBeNil)
				manager.AddClientInflight(1)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metric names carry the namespace", func() {
				manager.RecordClientRequest("/api/strategies", "GET", "200", 12)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_client_requests_total")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(registry))

		Convey("When recording client requests", func() {
			m.RecordClientRequest("/api/strategies/detail", "GET", "200", 5)
			m.RecordClientRequest("/api/strategies/detail", "GET", "200", 7)

			Convey("Then the counter reflects both", func() {
				So(testutil.ToFloat64(m.clientRequests.WithLabelValues("/api/strategies/detail", "GET", "200")), ShouldEqual, 2)
			})
		})

		Convey("When recording errors, retries and inflight", func() {
			m.RecordClientError("/api/strategies/start", "server_error")
			m.RecordClientRetry("/api/strategies")
			m.AddClientInflight(1)
			m.AddClientInflight(1)
			m.AddClientInflight(-1)

			Convey("Then each collector moves", func() {
				So(testutil.ToFloat64(m.clientErrors.WithLabelValues("/api/strategies/start", "server_error")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.clientRetries.WithLabelValues("/api/strategies")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.clientInflight), ShouldEqual, 1)
			})
		})

		Convey("When updating fake backend gauges", func() {
			m.UpdateStrategyCounts(5, 2)
			m.UpdateAgentJobs(map[string]int{"running": 1, "completed": 3})

			Convey("Then the gauges hold the latest values", func() {
				So(testutil.ToFloat64(m.strategiesTotal), ShouldEqual, 5)
				So(testutil.ToFloat64(m.runningStrategies), ShouldEqual, 2)
				So(testutil.ToFloat64(m.agentJobs.WithLabelValues("completed")), ShouldEqual, 3)
			})
		})

		Convey("When the manager is disabled", func() {
			off := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))
			off.RecordClientRetry("/x")

			Convey("Then observations are ignored", func() {
				So(testutil.ToFloat64(off.clientRetries.WithLabelValues("/x")), ShouldEqual, 0)
			})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		So(Default(), ShouldNotBeNil)
		So(GetRegistry(), ShouldNotBeNil)

		Convey("Then the package helpers never panic", func() {
			So(func() {
				RecordClientRequest("/api/strategies", "GET", "200", 1)
				RecordClientError("/api/strategies", "network")
				RecordClientRetry("/api/strategies")
				AddClientInflight(0)
				RecordRateLimitWait(0.5)
				RecordHTTPRequest("/healthz", "GET", "200", 1)
				RecordErrorByEndpoint("/api/strategies/detail", "GET", "not_found")
				UpdateStrategyCounts(0, 0)
				UpdateAgentJobs(map[string]int{})
			}, ShouldNotPanic)
		})
	})
}
