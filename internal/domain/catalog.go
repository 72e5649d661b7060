package domain

// Status is a row of the ticket status enum table. IsClosed drives
// closed_time bookkeeping, so no code depends on numeric status ids.
type Status struct {
	ID       int64  `yaml:"id"`
	Name     string `yaml:"name"`
	IsClosed bool   `yaml:"is_closed"`
}

// Priority is a row of the ticket priority enum table.
type Priority struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// Branch is a service location a ticket is routed to.
type Branch struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// Catalog is the set of live enum tables.
type Catalog struct {
	Statuses   []Status   `yaml:"statuses"`
	Priorities []Priority `yaml:"priorities"`
	Branches   []Branch   `yaml:"branches"`
}

// Status looks up a status by id.
func (c *Catalog) Status(id int64) (Status, bool) {
	for _, s := range c.Statuses {
		if s.ID == id {
			return s, true
		}
	}
	return Status{}, false
}

// HasPriority reports whether id is a known priority.
func (c *Catalog) HasPriority(id int64) bool {
	for _, p := range c.Priorities {
		if p.ID == id {
			return true
		}
	}
	return false
}

// HasBranch reports whether id is a known branch.
func (c *Catalog) HasBranch(id int64) bool {
	for _, b := range c.Branches {
		if b.ID == id {
			return true
		}
	}
	return false
}
