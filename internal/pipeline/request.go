package pipeline

import (
	"fmt"
	"strings"
	"time"

	apperrors "travel-planner/internal/common/errors"
)

// DateLayout is the format of TripRequest dates.
const DateLayout = "2006-01-02"

// TripRequest is the traveller's submission. It is never modified after validation.
type TripRequest struct {
	FromCity        string  `json:"from_city" mapstructure:"from_city"`
	DestinationCity string  `json:"destination_city" mapstructure:"destination_city"`
	DateFrom        string  `json:"date_from" mapstructure:"date_from"`
	DateTo          string  `json:"date_to" mapstructure:"date_to"`
	Interests       string  `json:"interests" mapstructure:"interests"`
	Budget          float64 `json:"budget" mapstructure:"budget"`
}

// Validate returns an INVALID_TRIP_REQUEST error listing every problem found.
func (r TripRequest) Validate() error {
	var problems []string
	if strings.TrimSpace(r.FromCity) == "" {
		problems = append(problems, "from_city is required")
	}
	if strings.TrimSpace(r.DestinationCity) == "" {
		problems = append(problems, "destination_city is required")
	}

	from, errFrom := time.Parse(DateLayout, r.DateFrom)
	if errFrom != nil {
		problems = append(problems, fmt.Sprintf("date_from %q is not a YYYY-MM-DD date", r.DateFrom))
	}
	to, errTo := time.Parse(DateLayout, r.DateTo)
	if errTo != nil {
		problems = append(problems, fmt.Sprintf("date_to %q is not a YYYY-MM-DD date", r.DateTo))
	}
	if errFrom == nil && errTo == nil && to.Before(from) {
		problems = append(problems, "date_to is before date_from")
	}

	if strings.TrimSpace(r.Interests) == "" {
		problems = append(problems, "interests is required")
	}
	if r.Budget <= 0 {
		problems = append(problems, "budget must be positive")
	}

	if len(problems) > 0 {
		return apperrors.NewInvalidTripRequestError(strings.Join(problems, "; "))
	}
	return nil
}

// State seeds a fresh pipeline state with the six request fields.
func (r TripRequest) State() State {
	return State{
		KeyFromCity:        r.FromCity,
		KeyDestinationCity: r.DestinationCity,
		KeyDateFrom:        r.DateFrom,
		KeyDateTo:          r.DateTo,
		KeyInterests:       r.Interests,
		KeyBudget:          r.Budget,
	}
}

// Days is the inclusive trip length, or 0 when the dates do not parse.
func (r TripRequest) Days() int {
	from, err := time.Parse(DateLayout, r.DateFrom)
	if err != nil {
		return 0
	}
	to, err := time.Parse(DateLayout, r.DateTo)
	if err != nil || to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours()/24) + 1
}

// Filename is the download name of the itinerary for this request.
func (r TripRequest) Filename() string {
	return ItineraryFilename(r.DestinationCity)
}

// ItineraryFilename builds TravelPlan_<destination>.md, replacing whitespace
// and path separators in the destination with underscores.
func ItineraryFilename(destination string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == '"' || r == ' ' || r == '\t' || r == '\n' || r == '\r':
			return '_'
		default:
			return r
		}
	}, strings.TrimSpace(destination))
	if clean == "" {
		clean = "Trip"
	}
	return "TravelPlan_" + clean + ".md"
}

// Itinerary is the result of one successful run.
type Itinerary struct {
	Markdown     string
	Filename     string
	LocationInfo string
	GuideInfo    string
}
