package mockapi

import (
	"time"

	"github.com/chemviz/chemviz/internal/api"
)

// seedSessions returns the canned upload history served to every new
// account, newest first.
func seedSessions(now time.Time) []api.Session {
	return []api.Session{
		{
			ID:             "3",
			FileName:       "reactor_units.csv",
			CreatedAt:      now.Add(-2 * time.Hour),
			TotalCount:     48,
			AvgFlowrate:    212.4,
			AvgPressure:    18.7,
			AvgTemperature: 96.2,
			Distribution: []api.DistributionEntry{
				{Category: "Reactor", Count: 20},
				{Category: "Pump", Count: 14},
				{Category: "Heat Exchanger", Count: 8},
				{Category: "Valve", Count: 6},
			},
		},
		{
			ID:             "2",
			FileName:       "pump_survey.csv",
			CreatedAt:      now.Add(-26 * time.Hour),
			TotalCount:     32,
			AvgFlowrate:    148.9,
			AvgPressure:    9.3,
			AvgTemperature: 61.5,
			Distribution: []api.DistributionEntry{
				{Category: "Pump", Count: 24},
				{Category: "Compressor", Count: 5},
				{Category: "Valve", Count: 3},
			},
		},
		{
			ID:             "1",
			FileName:       "plant_baseline.csv",
			CreatedAt:      now.Add(-72 * time.Hour),
			TotalCount:     120,
			AvgFlowrate:    175.0,
			AvgPressure:    12.1,
			AvgTemperature: 78.8,
			Distribution: []api.DistributionEntry{
				{Category: "Pump", Count: 45},
				{Category: "Valve", Count: 30},
				{Category: "Heat Exchanger", Count: 25},
				{Category: "Reactor", Count: 12},
				{Category: "Compressor", Count: 8},
			},
		},
	}
}

// uploadFixture fabricates the summary for an uploaded file. The mock
// does not parse CSV content; it replays a plausible aggregate.
func uploadFixture(id, fileName string, now time.Time) api.Session {
	return api.Session{
		ID:             id,
		FileName:       fileName,
		CreatedAt:      now,
		TotalCount:     64,
		AvgFlowrate:    190.5,
		AvgPressure:    14.2,
		AvgTemperature: 83.1,
		Distribution: []api.DistributionEntry{
			{Category: "Pump", Count: 26},
			{Category: "Valve", Count: 18},
			{Category: "Heat Exchanger", Count: 12},
			{Category: "Reactor", Count: 8},
		},
	}
}
