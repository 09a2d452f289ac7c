package planitinerary

import "travel-planner/internal/pipeline"

// Input holds the process variables read by the task.
type Input struct {
	FromCity        string  `json:"fromCity"`
	DestinationCity string  `json:"destinationCity"`
	DateFrom        string  `json:"dateFrom"`
	DateTo          string  `json:"dateTo"`
	Interests       string  `json:"interests"`
	Budget          float64 `json:"budget"`
}

func (in *Input) TripRequest() pipeline.TripRequest {
	return pipeline.TripRequest{
		FromCity:        in.FromCity,
		DestinationCity: in.DestinationCity,
		DateFrom:        in.DateFrom,
		DateTo:          in.DateTo,
		Interests:       in.Interests,
		Budget:          in.Budget,
	}
}

// Output is written back to the process instance.
type Output struct {
	FinalItinerary string `json:"finalItinerary"`
	LocationInfo   string `json:"locationInfo"`
	GuideInfo      string `json:"guideInfo"`
	Filename       string `json:"filename"`
}

const inputSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["fromCity", "destinationCity", "dateFrom", "dateTo", "interests", "budget"],
  "properties": {
    "fromCity":        {"type": "string", "minLength": 1},
    "destinationCity": {"type": "string", "minLength": 1},
    "dateFrom":        {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
    "dateTo":          {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
    "interests":       {"type": "string", "minLength": 1},
    "budget":          {"type": "number", "exclusiveMinimum": 0}
  }
}`
