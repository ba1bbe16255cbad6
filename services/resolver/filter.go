package resolver

// Filter keeps the candidates that resolved to at least one storefront
// url and removes urls already claimed by an earlier candidate. A
// candidate left without urls is dropped. The input is not modified and
// the order is kept, Filter(Filter(x)) equals Filter(x).
func Filter(candidates []*Candidate) []*Candidate {
	seen := map[string]struct{}{}
	out := []*Candidate{}
	for _, c := range candidates {
		if c == nil || len(c.Urls) == 0 {
			continue
		}

		clone := c.Clone()
		clone.Urls = clone.Urls[:0]
		for _, u := range c.Urls {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			clone.Urls = append(clone.Urls, u)
		}
		if len(clone.Urls) == 0 {
			continue
		}
		out = append(out, clone)
	}
	return out
}
