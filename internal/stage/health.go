package stage

import "strings"

// Health is one row of `newsreel status`: whether a step's delegates are
// reachable right now.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// FromProbe converts a delegate health probe into a Health. Only the first
// line of err is kept so the status table stays one row per step.
func FromProbe(name string, err error) Health {
	if err == nil {
		return Healthy(name)
	}
	detail, _, _ := strings.Cut(strings.TrimSpace(err.Error()), "\n")
	return Unhealthy(name, detail)
}
