package registry

// Stats is a snapshot of the call counters.
type Stats struct {
	Total    int64            `json:"total_calls"`
	PerTool  map[string]int64 `json:"tool_calls"`
	MostUsed string           `json:"most_used_tool"`
}

// UnknownBucket collects the per-tool count of calls naming no registered
// tool, so caller-supplied names cannot grow the map.
const UnknownBucket = "unknown"

func (r *Registry) count(name string, known bool) {
	if !known {
		name = UnknownBucket
	}
	r.countsMu.Lock()
	r.total.Add(1)
	r.counts[name]++
	r.countsMu.Unlock()
}

// Stats returns the call counters. MostUsed is the registered tool with the
// highest count, ties going to the alphabetically first name, or "" before
// any such call.
func (r *Registry) Stats() Stats {
	r.countsMu.Lock()
	defer r.countsMu.Unlock()

	s := Stats{
		Total:   r.total.Load(),
		PerTool: make(map[string]int64, len(r.counts)),
	}
	var best int64
	for name, n := range r.counts {
		s.PerTool[name] = n
		if name == UnknownBucket {
			continue
		}
		if n > best || (n == best && name < s.MostUsed) {
			best = n
			s.MostUsed = name
		}
	}
	return s
}
