package domain

// UnifiedRecord is one (Country, Year) row of the unified dataset.
type UnifiedRecord struct {
	Country string              `json:"country"`
	Year    int                 `json:"year"`
	Values  map[Metric]*float64 `json:"values"`
}

// NewUnifiedRecord returns a record with every metric missing.
func NewUnifiedRecord(country string, year int) UnifiedRecord {
	return UnifiedRecord{
		Country: country,
		Year:    year,
		Values:  make(map[Metric]*float64, len(UnifiedMetrics)),
	}
}

// Key returns the join key of the record.
func (r UnifiedRecord) Key() Key {
	return Key{Country: r.Country, Year: r.Year}
}

// Get returns the metric value and whether it is present.
func (r UnifiedRecord) Get(metric Metric) (float64, bool) {
	v := r.Values[metric]
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Set stores a copy of the value; nil marks the metric missing.
func (r UnifiedRecord) Set(metric Metric, value *float64) {
	if value == nil {
		r.Values[metric] = nil
		return
	}
	v := *value
	r.Values[metric] = &v
}

// Clone returns a deep copy of the record.
func (r UnifiedRecord) Clone() UnifiedRecord {
	out := NewUnifiedRecord(r.Country, r.Year)
	for m, v := range r.Values {
		out.Set(m, v)
	}
	return out
}

// Table is the unified dataset in row order.
type Table struct {
	Records []UnifiedRecord `json:"records"`
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Records)
}

// Column returns the values of one metric in row order.
func (t Table) Column(metric Metric) []*float64 {
	out := make([]*float64, len(t.Records))
	for i, rec := range t.Records {
		out[i] = rec.Values[metric]
	}
	return out
}

// Years returns the Year column as floats.
func (t Table) Years() []*float64 {
	out := make([]*float64, len(t.Records))
	for i, rec := range t.Records {
		out[i] = Float(float64(rec.Year))
	}
	return out
}

// Countries returns the unique countries in first-seen order.
func (t Table) Countries() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range t.Records {
		if _, ok := seen[rec.Country]; ok {
			continue
		}
		seen[rec.Country] = struct{}{}
		out = append(out, rec.Country)
	}
	return out
}

// YearBounds returns the smallest and largest Year. ok is false for an empty table.
func (t Table) YearBounds() (minYear, maxYear int, ok bool) {
	if len(t.Records) == 0 {
		return 0, 0, false
	}
	minYear, maxYear = t.Records[0].Year, t.Records[0].Year
	for _, rec := range t.Records[1:] {
		if rec.Year < minYear {
			minYear = rec.Year
		}
		if rec.Year > maxYear {
			maxYear = rec.Year
		}
	}
	return minYear, maxYear, true
}
