package benchmark

import (
	"encoding/json"
	"fmt"
	"os"
)

// Result is the record the runner writes per benchmark. Aggregation and
// plotting happen offline; cusweep only needs to decode these.
type Result struct {
	ScenarioName string       `json:"scenario_name"`
	Label        string       `json:"label"`
	Times        []TimeRecord `json:"times"`
}

// TimeRecord is one timing entry: flattened pairs of start/end
// timestamps in seconds. An entry without CPU times was skipped (e.g.
// the warmup pass).
type TimeRecord struct {
	CPUTimes    []float64 `json:"cpu_times,omitempty"`
	KernelTimes []float64 `json:"kernel_times,omitempty"`
}

func (t TimeRecord) Skipped() bool {
	return len(t.CPUTimes) == 0
}

// Durations pairs up the start/end timestamps into elapsed seconds.
// A trailing unpaired timestamp is dropped.
func (t TimeRecord) Durations() []float64 {
	durations := make([]float64, 0, len(t.CPUTimes)/2)
	for i := 0; i+1 < len(t.CPUTimes); i += 2 {
		durations = append(durations, t.CPUTimes[i+1]-t.CPUTimes[i])
	}
	return durations
}

// LoadResult reads and decodes one runner output file.
func LoadResult(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding result file %s: %w", path, err)
	}
	return &result, nil
}
