// Package stats computes the overview figures shown for the stored dataset.
package stats

import (
	"strconv"
	"strings"

	"failureforward/domain/sample"

	mstats "github.com/montanaflynn/stats"
)

// Compute summarizes samples. KD values that do not parse as numbers
// (after dropping a trailing unit such as "nM") are left out of the KD
// summary.
func Compute(samples []*sample.Sample) sample.Stats {
	out := sample.Stats{Total: len(samples)}

	sampleIDs := make(map[string]bool)
	projects := make(map[string]bool)
	scientists := make(map[string]bool)
	var kd mstats.Float64Data

	for _, s := range samples {
		addNonEmpty(sampleIDs, s.SampleID)
		addNonEmpty(projects, s.ProjectID)
		addNonEmpty(scientists, strings.ToLower(s.Scientist))
		if s.Expressed == "Yes" {
			out.Expressed++
		}
		if s.Soluble == "Yes" {
			out.Soluble++
		}
		if v, ok := ParseKD(s.KD); ok {
			kd = append(kd, v)
		}
	}

	out.UniqueSamples = len(sampleIDs)
	out.UniqueProjects = len(projects)
	out.UniqueScientists = len(scientists)
	out.KD = summarize(kd)
	return out
}

func summarize(data mstats.Float64Data) sample.KDSummary {
	if data.Len() == 0 {
		return sample.KDSummary{}
	}
	summary := sample.KDSummary{Count: data.Len()}
	summary.Mean, _ = data.Mean()
	summary.Median, _ = data.Median()
	summary.Min, _ = data.Min()
	summary.Max, _ = data.Max()
	return summary
}

// ParseKD reads a dissociation constant such as "12.5", "3e-9" or "40 nM"
func ParseKD(raw string) (float64, bool) {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func addNonEmpty(set map[string]bool, v string) {
	if v = strings.TrimSpace(v); v != "" {
		set[v] = true
	}
}
