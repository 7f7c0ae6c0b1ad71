package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should register its collectors on that registry", func() {
				So(manager, ShouldNotBeNil)
				manager.passesTotal.WithLabelValues("theme", "ok").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_unit_passes_total"], ShouldBeTrue)
			})
		})

		Convey("When passing empty options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, defaultNamespace)
				So(manager.subsystem, ShouldEqual, defaultSubsystem)
				So(manager.histogramBuckets, ShouldNotBeEmpty)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording pipeline metrics", func() {
			before := testutil.ToFloat64(globalManager.modelFailures.WithLabelValues("relevance"))
			RecordModelFailure("relevance")
			RecordModelFailure("relevance")

			Convey("Then counters advance", func() {
				after := testutil.ToFloat64(globalManager.modelFailures.WithLabelValues("relevance"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When updating gauges", func() {
			UpdateUniverseSize(120)
			UpdateRelevantPOIs(7)
			UpdateWorkerCount(4)
			UpdateQueueSize(3)

			Convey("Then they hold the last value", func() {
				So(testutil.ToFloat64(globalManager.universeSize), ShouldEqual, 120)
				So(testutil.ToFloat64(globalManager.relevantPOIs), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 3)
			})
		})

		Convey("When recording the remaining collectors", func() {
			Convey("Then nothing panics", func() {
				So(func() {
					RecordPass("relevance", "ok", 20*time.Millisecond)
					RecordPOIScored(3 * time.Millisecond)
					RecordCatalogRefresh("ok")
					RecordSensingFallback("weather")
					RecordLedgerWrite("upsert_score")
					RecordLedgerError("upsert_score")
					RecordInteraction("click")
					RecordLedgerQueryLatency(time.Millisecond)
					RecordQueueEnqueueError("closed")
					RecordHTTPRequest("pois", "GET", "200")
					RecordHTTPRequestDuration("pois", "GET", "200", 1.5)
				}, ShouldNotPanic)
			})
		})

		Convey("When gathering the custom registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then service metrics are exposed without Go runtime collectors", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(f.GetName(), ShouldStartWith, "myplaces_relevance_")
				}
			})
		})
	})
}
