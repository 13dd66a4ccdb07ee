package orchestrator

import (
	"math"
	"time"

	"marketing-insights-backend/internal/model"
)

// BuildResponse wraps a branch result in the API envelope, attaching the
// routing and timing metadata every response carries.
func BuildResponse(result model.AgentResult, intent, requestID string, start time.Time) *model.Response {
	elapsed := time.Since(start)

	metadata := map[string]interface{}{
		"agent":              intent,
		"execution_time":     roundTo(elapsed.Seconds(), 2),
		"processing_time_ms": roundTo(float64(elapsed.Microseconds())/1000.0, 2),
		"request_id":         requestID,
	}
	for k, v := range result.Metadata {
		if _, reserved := metadata[k]; !reserved {
			metadata[k] = v
		}
	}
	if result.DataStatus != "" {
		metadata["data_status"] = result.DataStatus
	}

	response := &model.Response{
		Success:  result.Success,
		Data:     result.Data,
		Metadata: metadata,
	}
	if result.Success {
		answer := result.Answer
		response.Answer = &answer
	} else {
		errMsg := result.Error
		response.Error = &errMsg
		if result.Answer != "" {
			answer := result.Answer
			response.Answer = &answer
		}
	}
	return response
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
