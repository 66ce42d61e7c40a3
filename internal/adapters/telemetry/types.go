package telemetry

// RaceEvent is one entry in a season schedule.
type RaceEvent struct {
	Season      int
	Round       int
	Name        string
	Date        string
	CircuitKey  string
	CircuitName string
	Location    string
	Country     string
}

// QualifyingRow is one driver's qualifying classification.
type QualifyingRow struct {
	Position     int
	DriverRef    string
	DriverCode   string
	DriverNumber int
	FirstName    string
	LastName     string
	Nationality  string
	Q1           float64
	Q2           float64
	Q3           float64
}

// ResultRow is one driver's race classification.
type ResultRow struct {
	DriverRef      string
	DriverCode     string
	DriverNumber   int
	FirstName      string
	LastName       string
	Nationality    string
	TeamKey        string
	TeamName       string
	GridPosition   int
	FinalPosition  int
	Points         float64
	Status         string
	FastestLap     bool
	FastestLapTime float64
}

// LapRow is one timed lap for one driver. The feed keys laps by the
// stable driver reference, not the three-letter code.
type LapRow struct {
	DriverRef string
	Lap       int
	Seconds   float64
}

// PitStopRow is one pit stop for one driver.
type PitStopRow struct {
	DriverRef string
	Lap       int
	Duration  float64
}

// Feed response envelope. The upstream API wraps every payload in an
// MRData object with stringly-typed numbers.
type feedEnvelope struct {
	MRData struct {
		Total     string    `json:"total"`
		RaceTable raceTable `json:"RaceTable"`
	} `json:"MRData"`
}

type raceTable struct {
	Season string     `json:"season"`
	Races  []feedRace `json:"Races"`
}

type feedRace struct {
	Season   string      `json:"season"`
	Round    string      `json:"round"`
	RaceName string      `json:"raceName"`
	Date     string      `json:"date"`
	Circuit  feedCircuit `json:"Circuit"`

	QualifyingResults []feedQualifying `json:"QualifyingResults"`
	Results           []feedResult     `json:"Results"`
	Laps              []feedLap        `json:"Laps"`
	PitStops          []feedPitStop    `json:"PitStops"`
}

type feedCircuit struct {
	CircuitID string `json:"circuitId"`
	Name      string `json:"circuitName"`
	Location  struct {
		Locality string `json:"locality"`
		Country  string `json:"country"`
	} `json:"Location"`
}

type feedDriver struct {
	DriverID        string `json:"driverId"`
	Code            string `json:"code"`
	PermanentNumber string `json:"permanentNumber"`
	GivenName       string `json:"givenName"`
	FamilyName      string `json:"familyName"`
	Nationality     string `json:"nationality"`
}

type feedConstructor struct {
	ConstructorID string `json:"constructorId"`
	Name          string `json:"name"`
}

type feedQualifying struct {
	Position string     `json:"position"`
	Driver   feedDriver `json:"Driver"`
	Q1       string     `json:"Q1"`
	Q2       string     `json:"Q2"`
	Q3       string     `json:"Q3"`
}

type feedResult struct {
	Position    string          `json:"position"`
	Grid        string          `json:"grid"`
	Points      string          `json:"points"`
	Status      string          `json:"status"`
	Driver      feedDriver      `json:"Driver"`
	Constructor feedConstructor `json:"Constructor"`
	FastestLap  *struct {
		Rank string `json:"rank"`
		Time struct {
			Time string `json:"time"`
		} `json:"Time"`
	} `json:"FastestLap"`
}

type feedLap struct {
	Number  string `json:"number"`
	Timings []struct {
		DriverID string `json:"driverId"`
		Time     string `json:"time"`
	} `json:"Timings"`
}

type feedPitStop struct {
	DriverID string `json:"driverId"`
	Lap      string `json:"lap"`
	Duration string `json:"duration"`
}
