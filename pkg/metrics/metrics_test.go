package metrics

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then metrics are registered under the default namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.reviewsSubmitted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
				found := false
				for _, f := range families {
					if f.GetName() == "verdict_judging_reviews_submitted_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithMetricPrefix("x_"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then names and const labels follow the options", func() {
				manager.reviewConflicts.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var names []string
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "test_sub_x_review_conflicts_total")
				So(manager.refreshInterval, ShouldEqual, 5*time.Second)
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
			})
		})

		Convey("When empty values are passed", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(0),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "verdict")
				So(manager.subsystem, ShouldEqual, "judging")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording review metrics", func() {
			before := testutil.ToFloat64(globalManager.reviewsSubmitted)
			conflicts := testutil.ToFloat64(globalManager.reviewConflicts)
			RecordReviewSubmitted()
			RecordReviewConflict()
			RecordReviewConflict()

			Convey("Then the counters advance", func() {
				So(testutil.ToFloat64(globalManager.reviewsSubmitted)-before, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.reviewConflicts)-conflicts, ShouldEqual, 2)
			})
		})

		Convey("When recording assignment counts", func() {
			c := globalManager.assignmentsCreated.WithLabelValues("fanout")
			before := testutil.ToFloat64(c)
			RecordAssignmentsCreated("fanout", 6)
			RecordAssignmentsCreated("fanout", 0)
			RecordAssignmentsCreated("fanout", -3)

			Convey("Then only positive counts are added", func() {
				So(testutil.ToFloat64(c)-before, ShouldEqual, 6)
			})
		})

		Convey("When recording mirror repairs", func() {
			before := testutil.ToFloat64(globalManager.mirrorRepairs)
			RecordMirrorRepairs(2)
			RecordMirrorRepairs(0)

			Convey("Then the repair counter advances by the repaired count", func() {
				So(testutil.ToFloat64(globalManager.mirrorRepairs)-before, ShouldEqual, 2)
			})
		})

		Convey("When updating gauges", func() {
			UpdateQueueSize(12)
			UpdateQueueCapacity(100)
			UpdateDedupeEntries(4)

			Convey("Then the gauges hold the last value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 12)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 100)
				So(testutil.ToFloat64(globalManager.dedupeEntries), ShouldEqual, 4)
			})
		})

		Convey("When recording the remaining series", func() {
			So(func() {
				RecordEnsureCall()
				RecordLedgerLatency("create_if_absent", 1.5)
				RecordReviewRejected("validation")
				RecordReviewLatency(3)
				RecordMirrorWriteFailure()
				RecordScoringRun("leaderboard")
				RecordScoringLatency(2)
				RecordScoringError()
				RecordReminderSent()
				RecordReminderSuppressed()
				RecordNotificationPublished("review.submitted")
				RecordNotificationDropped()
				RecordNotificationError()
				UpdateQueueUtilization(0.5)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(1)
				UpdateWorkerCount(4)
				UpdateWorkerActiveCount(4)
				RecordWorkerProcessingLatency(1)
				RecordWorkerError()
				RecordHTTPRequest("/events/{eventID}/results", "GET", "200")
				RecordHTTPRequestDuration("/events/{eventID}/results", "GET", "200", 4)
				RecordErrorByComponent("review", "conflict")
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		before := testutil.ToFloat64(globalManager.remindersSent)
		const goroutines = 20
		const perGoroutine = 50

		var wg sync.WaitGroup
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < perGoroutine; j++ {
					RecordReminderSent()
					UpdateQueueSize(j)
				}
			}()
		}
		wg.Wait()

		Convey("Then no increment is lost", func() {
			So(testutil.ToFloat64(globalManager.remindersSent)-before, ShouldEqual, goroutines*perGoroutine)
		})
	})
}

func TestSinceMs(t *testing.T) {
	Convey("SinceMs is non-negative and grows with time", t, func() {
		start := time.Now().Add(-10 * time.Millisecond)
		So(SinceMs(start), ShouldBeGreaterThanOrEqualTo, 10)
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("The custom registry gathers our metrics", t, func() {
		RecordReviewSubmitted()
		families, err := GetRegistry().Gather()
		So(err, ShouldBeNil)
		So(families, ShouldNotBeEmpty)
	})
}
