package aggregates

// Contract states what an aggregate owns and how its writes serialize.
// Every write opens its own transaction and locks LockRoot before reading
// anything it decides on; listing and feed reads stay in table repos.
type Contract struct {
	Name string
	// LockRoot is the table whose row each write locks first.
	LockRoot string
	// Owns lists the tables only this aggregate may mutate.
	Owns  []string
	Notes string
}

// Op returns the fully qualified operation name used in spans, metrics and
// error values.
func (c Contract) Op(method string) string {
	return c.Name + "." + method
}

// OwnsTable reports whether writes to table must go through the aggregate.
func (c Contract) OwnsTable(table string) bool {
	for _, t := range c.Owns {
		if t == table {
			return true
		}
	}
	return false
}

type Aggregate interface {
	Contract() Contract
}
