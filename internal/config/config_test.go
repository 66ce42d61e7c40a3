package config_test

import (
	"runtime"
	"testing"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		Convey("Then it should have sensible defaults", func() {
			So(cfg.Addr, ShouldEqual, ":8000")
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.StoreKind, ShouldEqual, "memory")
			So(cfg.IngestQueueSize, ShouldEqual, 100_000)
			So(cfg.WorkerCount, ShouldEqual, runtime.NumCPU()*4)
			So(cfg.DedupeSize, ShouldEqual, 500_000)
			So(cfg.MaxRankingLimit, ShouldEqual, 100)
			So(cfg.MaxListLimit, ShouldEqual, 500)
			So(cfg.FeedBaseURL, ShouldEqual, "https://api.jolpi.ca/ergast/f1")
			So(cfg.BaseRating, ShouldEqual, 1500)
			So(cfg.RatingKFactor, ShouldEqual, 24)
			So(cfg.SimulationRuns, ShouldEqual, 2000)
			So(cfg.SimulationMaxRuns, ShouldEqual, 50_000)
		})
	})
}
