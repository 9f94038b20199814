package geo

// RegionHint is a hemisphere-guessing policy for coordinates that arrive
// without an explicit N/S/E/W reference. It is a product convenience for a
// known deployment region, not a geodesy rule: a positive latitude inside the
// hint box is assumed to be in the southern hemisphere and negated, and a
// longitude inside the box is assumed east. Callers that serve multiple
// regions should disable it and require explicit references.
type RegionHint struct {
	Name   string
	LatMin float64
	LatMax float64
	LngMin float64
	LngMax float64
}

// SouthernAfrica is the default deployment region: latitudes 22 to 35
// degrees (south), longitudes 16 to 33 degrees (east).
var SouthernAfrica = RegionHint{
	Name:   "southern-africa",
	LatMin: 22,
	LatMax: 35,
	LngMin: 16,
	LngMax: 33,
}

// Zero reports whether the hint is disabled.
func (h RegionHint) Zero() bool {
	return h.LatMin == 0 && h.LatMax == 0 && h.LngMin == 0 && h.LngMax == 0
}

// AssumeLatRef guesses a hemisphere reference for an unreferenced latitude
// magnitude. Returns 'S' when the value falls inside the hint band, 0 when no
// guess applies.
func (h RegionHint) AssumeLatRef(dd float64) byte {
	if h.Zero() {
		return 0
	}
	if dd >= h.LatMin && dd <= h.LatMax {
		return 'S'
	}
	return 0
}

// AssumeLngRef guesses a reference for an unreferenced longitude magnitude.
// Returns 'E' inside the hint band, 0 otherwise.
func (h RegionHint) AssumeLngRef(dd float64) byte {
	if h.Zero() {
		return 0
	}
	if dd >= h.LngMin && dd <= h.LngMax {
		return 'E'
	}
	return 0
}

// Apply negates the latitude of a parsed pair when both axes fall inside the
// hint box with a positive latitude. Reports whether the guess was applied so
// callers can surface it as such.
func (h RegionHint) Apply(p CoordinatePair) (CoordinatePair, bool) {
	if h.Zero() {
		return p, false
	}
	if p.Latitude >= h.LatMin && p.Latitude <= h.LatMax &&
		p.Longitude >= h.LngMin && p.Longitude <= h.LngMax {
		p.Latitude = -p.Latitude
		return p, true
	}
	return p, false
}
