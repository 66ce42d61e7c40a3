package repository_test

import (
	"context"
	"testing"
	"time"

	repository "github.com/Shivam-Lahoti/F1-Predictor/internal/adapters/repository"
	. "github.com/smartystreets/goconvey/convey"
)

func newRankings(ctx context.Context) *repository.TreapRankings {
	return repository.NewTreapRankings(ctx,
		repository.WithSnapshotInterval(time.Hour), // keep the background loop quiet
	)
}

func TestTreapRankings(t *testing.T) {
	Convey("Given a new TreapRankings", t, func() {
		ctx := context.Background()
		r := newRankings(ctx)
		defer r.Close()

		Convey("When no drivers are rated", func() {
			Convey("Then the store is empty", func() {
				So(r.Count(ctx), ShouldEqual, 0)

				top, err := r.TopN(ctx, 5)
				So(err, ShouldBeNil)
				So(top, ShouldBeEmpty)

				_, err = r.Rank(ctx, "VER")
				So(err, ShouldEqual, repository.ErrNotFound)
			})
		})

		Convey("When asking for a non-positive limit", func() {
			_, err := r.TopN(ctx, 0)

			Convey("Then it should fail", func() {
				So(err, ShouldEqual, repository.ErrInvalidLimit)
			})
		})

		Convey("When rating a field of drivers", func() {
			for _, d := range []struct {
				code   string
				rating float64
			}{
				{"NOR", 1520},
				{"VER", 1580},
				{"LEC", 1510},
				{"ZHO", 1430},
			} {
				changed, err := r.SetRating(ctx, d.code, d.rating, 5)
				So(err, ShouldBeNil)
				So(changed, ShouldBeTrue)
			}

			Convey("Then TopN is ordered by rating descending", func() {
				top, err := r.TopN(ctx, 3)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 3)
				So(top[0].DriverCode, ShouldEqual, "VER")
				So(top[0].Rank, ShouldEqual, 1)
				So(top[1].DriverCode, ShouldEqual, "NOR")
				So(top[2].DriverCode, ShouldEqual, "LEC")
			})

			Convey("Then a limit past the field returns everyone", func() {
				top, err := r.TopN(ctx, 50)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 4)
				So(top[3].DriverCode, ShouldEqual, "ZHO")
			})

			Convey("Then Rank resolves individual drivers", func() {
				entry, err := r.Rank(ctx, "LEC")
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 3)
				So(entry.Rating, ShouldAlmostEqual, 1510, 1e-6)
				So(entry.Races, ShouldEqual, 1)
				So(entry.LastDelta, ShouldAlmostEqual, 5)
			})

			Convey("And a rating drops after a bad race", func() {
				changed, err := r.SetRating(ctx, "VER", 1500, -80)
				So(err, ShouldBeNil)
				So(changed, ShouldBeTrue)

				Convey("Then the order moves both ways", func() {
					top, err := r.TopN(ctx, 4)
					So(err, ShouldBeNil)
					So(top[0].DriverCode, ShouldEqual, "NOR")

					entry, err := r.Rank(ctx, "VER")
					So(err, ShouldBeNil)
					So(entry.Rank, ShouldEqual, 4)
					So(entry.Races, ShouldEqual, 2)
					So(entry.LastDelta, ShouldAlmostEqual, -80)
				})
			})

			Convey("And the same rating is written again", func() {
				changed, err := r.SetRating(ctx, "NOR", 1520, 0)
				So(err, ShouldBeNil)

				Convey("Then nothing changed but the race still counts", func() {
					So(changed, ShouldBeFalse)

					entry, err := r.Rank(ctx, "NOR")
					So(err, ShouldBeNil)
					So(entry.Races, ShouldEqual, 2)
				})
			})
		})

		Convey("When two drivers share a rating", func() {
			_, err := r.SetRating(ctx, "HAM", 1550, 0)
			So(err, ShouldBeNil)
			_, err = r.SetRating(ctx, "RUS", 1550, 0)
			So(err, ShouldBeNil)
			_, err = r.SetRating(ctx, "GAS", 1490, 0)
			So(err, ShouldBeNil)

			Convey("Then they share a rank, broken by code within it", func() {
				top, err := r.TopN(ctx, 3)
				So(err, ShouldBeNil)
				So(top[0].DriverCode, ShouldEqual, "HAM")
				So(top[0].Rank, ShouldEqual, 1)
				So(top[1].DriverCode, ShouldEqual, "RUS")
				So(top[1].Rank, ShouldEqual, 1)
				So(top[2].DriverCode, ShouldEqual, "GAS")
				So(top[2].Rank, ShouldEqual, 2)
			})
		})

		Convey("When many drivers are inserted", func() {
			codes := "ABCDEFGHIJKLMNOPQRST"
			for i := 0; i < len(codes); i++ {
				code := string(codes[i]) + "XX"
				_, err := r.SetRating(ctx, code, 1400+float64(i), 0)
				So(err, ShouldBeNil)
			}

			Convey("Then count and order hold across the field", func() {
				So(r.Count(ctx), ShouldEqual, len(codes))

				top, err := r.TopN(ctx, len(codes))
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, len(codes))
				for i := 1; i < len(top); i++ {
					So(top[i].Rating, ShouldBeLessThan, top[i-1].Rating)
				}
				So(top[0].DriverCode, ShouldEqual, "TXX")
			})
		})
	})
}
