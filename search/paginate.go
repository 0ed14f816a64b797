package search

// Paginate slices the globally sorted result set into one page. results must
// already be sorted by (final desc, id asc); see SortResults.
//
// A caller that pages past the end gets an empty page with HasMore false
// rather than an error.
func Paginate(results []ScoredResult, offset, limit int) Page {
	if offset >= len(results) {
		return Page{
			Items:      []ScoredResult{},
			HasMore:    false,
			NextOffset: offset,
		}
	}

	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	items := results[offset:end]

	return Page{
		Items:      items,
		HasMore:    len(results) > offset+limit,
		NextOffset: offset + len(items),
	}
}
