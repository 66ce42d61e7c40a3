package repository_test

import (
	"context"
	"testing"
	"time"

	repository "github.com/Shivam-Lahoti/F1-Predictor/internal/adapters/repository"
	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryStore(t *testing.T) {
	Convey("Given a new MemoryStore", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()

		Convey("When ensuring a circuit twice", func() {
			first, err1 := store.EnsureCircuit(ctx, model.Circuit{
				Key: "monza", Name: "Autodromo Nazionale Monza", Country: "Italy",
			})
			second, err2 := store.EnsureCircuit(ctx, model.Circuit{Key: "MONZA"})

			Convey("Then both calls return the same row", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first.ID, ShouldBeGreaterThan, 0)
				So(second.ID, ShouldEqual, first.ID)
				So(second.Name, ShouldEqual, "Autodromo Nazionale Monza")
			})
		})

		Convey("When a bare skeleton exists before the header arrives", func() {
			bare, err := store.EnsureCircuit(ctx, model.Circuit{Key: "bahrain"})
			So(err, ShouldBeNil)
			So(bare.Name, ShouldEqual, "")

			skeleton, err := store.EnsureRace(ctx, model.Race{Season: 2024, Round: 1})
			So(err, ShouldBeNil)

			ghost, err := store.EnsureDriver(ctx, model.Driver{Code: "VER"})
			So(err, ShouldBeNil)

			Convey("Then a later ensure fills the empty circuit fields", func() {
				filled, err := store.EnsureCircuit(ctx, model.Circuit{
					Key: "bahrain", Name: "Bahrain International Circuit",
					Location: "Sakhir", Country: "Bahrain",
				})
				So(err, ShouldBeNil)
				So(filled.ID, ShouldEqual, bare.ID)
				So(filled.Name, ShouldEqual, "Bahrain International Circuit")
				So(filled.Country, ShouldEqual, "Bahrain")

				stored, err := store.EnsureCircuit(ctx, model.Circuit{Key: "bahrain"})
				So(err, ShouldBeNil)
				So(stored.Name, ShouldEqual, "Bahrain International Circuit")
			})

			Convey("Then the race header fills name, circuit and date", func() {
				date := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
				header, err := store.EnsureRace(ctx, model.Race{
					Season: 2024, Round: 1, Name: "Bahrain Grand Prix",
					CircuitID: bare.ID, Date: date,
				})
				So(err, ShouldBeNil)
				So(header.ID, ShouldEqual, skeleton.ID)
				So(header.Name, ShouldEqual, "Bahrain Grand Prix")
				So(header.CircuitID, ShouldEqual, bare.ID)
				So(header.Date.Equal(date), ShouldBeTrue)
			})

			Convey("Then filled fields are never overwritten", func() {
				_, err := store.EnsureRace(ctx, model.Race{
					Season: 2024, Round: 1, Name: "Bahrain Grand Prix",
				})
				So(err, ShouldBeNil)

				again, err := store.EnsureRace(ctx, model.Race{
					Season: 2024, Round: 1, Name: "Renamed Grand Prix",
				})
				So(err, ShouldBeNil)
				So(again.Name, ShouldEqual, "Bahrain Grand Prix")
			})

			Convey("Then a driver created from a lap record gains its names later", func() {
				full, err := store.EnsureDriver(ctx, model.Driver{
					Code: "VER", Number: 33, FirstName: "Max", LastName: "Verstappen",
				})
				So(err, ShouldBeNil)
				So(full.ID, ShouldEqual, ghost.ID)
				So(full.LastName, ShouldEqual, "Verstappen")
				So(full.Number, ShouldEqual, 33)
			})
		})

		Convey("When ensuring a circuit without a key", func() {
			_, err := store.EnsureCircuit(ctx, model.Circuit{Name: "nameless"})

			Convey("Then it should fail with a conflict", func() {
				So(err, ShouldEqual, repository.ErrConflict)
			})
		})

		Convey("When ensuring drivers", func() {
			ver, err := store.EnsureDriver(ctx, model.Driver{Code: "ver", FirstName: "Max", LastName: "Verstappen"})
			So(err, ShouldBeNil)

			Convey("Then codes are normalized to upper case", func() {
				So(ver.Code, ShouldEqual, "VER")

				byCode, err := store.GetDriverByCode(ctx, "Ver")
				So(err, ShouldBeNil)
				So(byCode.ID, ShouldEqual, ver.ID)
			})

			Convey("And unknown lookups return not found", func() {
				_, err := store.GetDriverByCode(ctx, "XXX")
				So(err, ShouldEqual, repository.ErrNotFound)
				_, err = store.GetDriver(ctx, 9999)
				So(err, ShouldEqual, repository.ErrNotFound)
			})
		})

		Convey("When ensuring races and listing them", func() {
			for _, rc := range []model.Race{
				{Season: 2024, Round: 2, Name: "Saudi Arabian Grand Prix"},
				{Season: 2024, Round: 1, Name: "Bahrain Grand Prix"},
				{Season: 2023, Round: 1, Name: "Bahrain Grand Prix"},
			} {
				_, err := store.EnsureRace(ctx, rc)
				So(err, ShouldBeNil)
			}

			Convey("Then listing is ordered by season then round", func() {
				races, err := store.ListRaces(ctx, 0, 0)
				So(err, ShouldBeNil)
				So(len(races), ShouldEqual, 3)
				So(races[0].Season, ShouldEqual, 2023)
				So(races[1].Round, ShouldEqual, 1)
				So(races[2].Round, ShouldEqual, 2)
			})

			Convey("And season filtering works", func() {
				races, err := store.ListRaces(ctx, 2024, 0)
				So(err, ShouldBeNil)
				So(len(races), ShouldEqual, 2)
			})

			Convey("And the limit caps the result", func() {
				races, err := store.ListRaces(ctx, 0, 1)
				So(err, ShouldBeNil)
				So(len(races), ShouldEqual, 1)
			})

			Convey("And re-ensuring the same round returns the stored race", func() {
				again, err := store.EnsureRace(ctx, model.Race{Season: 2024, Round: 1})
				So(err, ShouldBeNil)
				So(again.Name, ShouldEqual, "Bahrain Grand Prix")
			})
		})

		Convey("When building a full race weekend", func() {
			race, err := store.EnsureRace(ctx, model.Race{
				Season: 2024, Round: 5, Name: "Miami Grand Prix", Date: time.Now(),
			})
			So(err, ShouldBeNil)
			ver, _ := store.EnsureDriver(ctx, model.Driver{Code: "VER"})
			nor, _ := store.EnsureDriver(ctx, model.Driver{Code: "NOR"})
			rb, _ := store.EnsureTeam(ctx, model.Team{Key: "red_bull", Name: "Red Bull Racing"})

			So(store.AddQualifyingResult(ctx, model.QualifyingResult{RaceID: race.ID, DriverID: ver.ID, Position: 1}), ShouldBeNil)
			So(store.AddQualifyingResult(ctx, model.QualifyingResult{RaceID: race.ID, DriverID: nor.ID, Position: 2}), ShouldBeNil)
			So(store.AddRaceResult(ctx, model.RaceResult{RaceID: race.ID, DriverID: nor.ID, TeamID: 0, FinalPosition: 1, Points: 25}), ShouldBeNil)
			So(store.AddRaceResult(ctx, model.RaceResult{RaceID: race.ID, DriverID: ver.ID, TeamID: rb.ID, FinalPosition: 2, Points: 18}), ShouldBeNil)
			So(store.AddLapTime(ctx, model.LapTime{RaceID: race.ID, DriverID: ver.ID, Lap: 1, Seconds: 92.3}), ShouldBeNil)
			So(store.AddPitStop(ctx, model.PitStop{RaceID: race.ID, DriverID: ver.ID, Lap: 20, Duration: 22.1}), ShouldBeNil)
			So(store.AddWeather(ctx, model.Weather{RaceID: race.ID, Lap: 1, TrackTemp: 41.5}), ShouldBeNil)

			Convey("Then the race detail aggregates sorted rows", func() {
				detail, err := store.GetRaceDetail(ctx, race.ID)
				So(err, ShouldBeNil)
				So(detail.Race.Name, ShouldEqual, "Miami Grand Prix")
				So(len(detail.Qualifying), ShouldEqual, 2)
				So(detail.Qualifying[0].Position, ShouldEqual, 1)
				So(len(detail.Results), ShouldEqual, 2)
				So(detail.Results[0].FinalPosition, ShouldEqual, 1)
				So(len(detail.PitStops), ShouldEqual, 1)
				So(len(detail.Weather), ShouldEqual, 1)
			})

			Convey("Then results and qualifying are readable on their own", func() {
				results, err := store.ResultsForRace(ctx, race.ID)
				So(err, ShouldBeNil)
				So(len(results), ShouldEqual, 2)

				quali, err := store.QualifyingForRace(ctx, race.ID)
				So(err, ShouldBeNil)
				So(len(quali), ShouldEqual, 2)
			})

			Convey("Then counts reflect every table", func() {
				counts, err := store.Counts(ctx)
				So(err, ShouldBeNil)
				So(counts["races"], ShouldEqual, 1)
				So(counts["drivers"], ShouldEqual, 2)
				So(counts["teams"], ShouldEqual, 1)
				So(counts["qualifying_results"], ShouldEqual, 2)
				So(counts["race_results"], ShouldEqual, 2)
				So(counts["lap_times"], ShouldEqual, 1)
				So(counts["pit_stops"], ShouldEqual, 1)
				So(counts["weather"], ShouldEqual, 1)
			})
		})

		Convey("When adding rows for an unknown race", func() {
			err := store.AddRaceResult(ctx, model.RaceResult{RaceID: 404})

			Convey("Then it should fail with not found", func() {
				So(err, ShouldEqual, repository.ErrNotFound)
			})
		})

		Convey("When requesting detail for an unknown race", func() {
			_, err := store.GetRaceDetail(ctx, 404)

			Convey("Then it should fail with not found", func() {
				So(err, ShouldEqual, repository.ErrNotFound)
			})
		})
	})
}
