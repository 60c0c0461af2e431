package model

// Resource is one entry of the scenario's resource table.
type Resource struct {
	ID        int `json:"id" yaml:"id"`
	Instances int `json:"instances" yaml:"instances"`
}

// Scenario is the structured engine input: a resource table and the task
// list in load order.
type Scenario struct {
	Name      string     `json:"name,omitempty" yaml:"name,omitempty"`
	Resources []Resource `json:"resources" yaml:"resources"`
	Tasks     []TaskSpec `json:"tasks" yaml:"tasks"`
}

// ResourceTotals returns the resource table as id -> total instances.
func (s *Scenario) ResourceTotals() map[int]int {
	totals := make(map[int]int, len(s.Resources))
	for _, r := range s.Resources {
		totals[r.ID] = r.Instances
	}
	return totals
}
