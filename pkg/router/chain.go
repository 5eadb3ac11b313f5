package router

import "sort"

// Route is one candidate (provider, model) pair in the failover chain.
// Lower priority is attempted first; ties keep their configured order.
type Route struct {
	Priority   int    `json:"priority"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	IsFallback bool   `json:"is_fallback"`
}

// BuildChain turns the configured routes plus an optional caller override
// into the ordered attempt sequence. The override always comes first; a
// configured route for the same (provider, model) pair is removed so it is
// not attempted twice.
func BuildChain(routes []Route, overrideProvider, overrideModel string) []Route {
	sorted := make([]Route, len(routes))
	copy(sorted, routes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	if overrideProvider == "" {
		return sorted
	}

	chain := make([]Route, 0, len(sorted)+1)
	chain = append(chain, Route{
		Provider: overrideProvider,
		Model:    overrideModel,
	})

	for _, route := range sorted {
		if route.Provider == overrideProvider && route.Model == overrideModel {
			continue
		}
		chain = append(chain, route)
	}

	return chain
}
