package schema

// Item is a unit of work fetched from the issue tracker.
type Item struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Priority    int      `json:"priority" yaml:"priority"` // 0 (none) to 4, 1 is most urgent
	Labels      []string `json:"labels,omitempty" yaml:"labels,omitempty"`
	State       string   `json:"state,omitempty" yaml:"state,omitempty"`
	Assignee    string   `json:"assignee,omitempty" yaml:"assignee,omitempty"`
}

// Text returns the title and description joined for keyword matching.
func (i Item) Text() string {
	if i.Description == "" {
		return i.Title
	}
	return i.Title + " " + i.Description
}

// AffinityFor classifies the item relative to the given user.
func (i Item) AffinityFor(user string) Affinity {
	switch {
	case i.Assignee == "":
		return AffinityUnassigned
	case user != "" && i.Assignee == user:
		return AffinityMine
	default:
		return AffinityOther
	}
}
