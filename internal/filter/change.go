package filter

// Change is one edit to a State. The set of changes is closed: every
// variant is declared in this file.
type Change interface {
	apply(*State)
}

type (
	CategoryChange    string
	HallChange        string
	TypeChange        string
	StatusChange      string
	SeasonalityChange string
	ConditionChange   int
	DiscountChange    int
	MinPriceChange    float64
	MaxPriceChange    float64
	ExperienceChange  float64
	SearchChange      string
	SortChange        SortKey
	// Reset clears every filter and the search, keeping the sort.
	Reset struct{}
)

func (c CategoryChange) apply(s *State)    { s.Category = string(c) }
func (c HallChange) apply(s *State)        { s.Hall = string(c) }
func (c TypeChange) apply(s *State)        { s.Type = string(c) }
func (c StatusChange) apply(s *State)      { s.Status = string(c) }
func (c SeasonalityChange) apply(s *State) { s.Seasonality = string(c) }
func (c ConditionChange) apply(s *State)   { s.Condition = int(c) }
func (c DiscountChange) apply(s *State)    { s.Discount = int(c) }
func (c MinPriceChange) apply(s *State)    { s.MinPrice = float64(c) }
func (c MaxPriceChange) apply(s *State)    { s.MaxPrice = float64(c) }
func (c ExperienceChange) apply(s *State)  { s.Experience = float64(c) }
func (c SearchChange) apply(s *State)      { s.Search = string(c) }
func (c SortChange) apply(s *State)        { s.Sort = SortKey(c) }

func (Reset) apply(s *State) {
	*s = State{Sort: s.Sort}
}

// Apply returns a copy of s with the changes applied in order.
func Apply(s State, changes ...Change) State {
	for _, c := range changes {
		c.apply(&s)
	}
	return s
}
