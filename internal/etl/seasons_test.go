package etl_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/etl"
	logging "github.com/Shivam-Lahoti/F1-Predictor/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logging.Init(); err != nil {
		panic(err)
	}
}

const calendarFixture = `{
	"MRData": {
		"total": "2",
		"RaceTable": {
			"season": "2024",
			"Races": [
				{
					"season": "2024", "round": "1", "raceName": "Bahrain Grand Prix", "date": "2024-03-02",
					"Circuit": {
						"circuitId": "bahrain", "circuitName": "Bahrain International Circuit",
						"Location": {"locality": "Sakhir", "country": "Bahrain"}
					}
				},
				{
					"season": "2024", "round": "2", "raceName": "Saudi Arabian Grand Prix", "date": "2024-03-09",
					"Circuit": {
						"circuitId": "jeddah", "circuitName": "Jeddah Corniche Circuit",
						"Location": {"locality": "Jeddah", "country": "Saudi Arabia"}
					}
				}
			]
		}
	}
}`

const emptyCalendarFixture = `{
	"MRData": {
		"total": "0",
		"RaceTable": {"season": "1949", "Races": []}
	}
}`

func TestSeasons(t *testing.T) {
	Convey("Given a feed serving season calendars", t, func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/1949.json" {
				fmt.Fprint(w, emptyCalendarFixture)
				return
			}
			fmt.Fprint(w, calendarFixture)
		}))
		defer ts.Close()

		config := &etl.Config{
			FeedBaseURL: ts.URL,
			Season:      2024,
			Timeout:     5 * time.Second,
		}

		Convey("When listing a season", func() {
			events, err := etl.Seasons(context.Background(), config)

			Convey("Then the calendar is returned in round order", func() {
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 2)
				So(events[0].Round, ShouldEqual, 1)
				So(events[0].CircuitName, ShouldEqual, "Bahrain International Circuit")
				So(events[1].Name, ShouldEqual, "Saudi Arabian Grand Prix")
			})
		})

		Convey("When the season has no races", func() {
			config.Season = 1949
			_, err := etl.Seasons(context.Background(), config)

			Convey("Then it fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "no races found")
			})
		})
	})
}
