package project

import (
	"fmt"
	"sort"
)

// Graph is the tree of build units: an edge runs from a host unit to each
// unit embedded in it.
type Graph struct {
	nodes    map[string]*UnitSpec
	children map[string][]string // host -> embedded units
	parents  map[string][]string // embedded unit -> hosts
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]*UnitSpec),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
}

// AddUnit adds a unit, replacing the data of an existing one.
func (g *Graph) AddUnit(u *UnitSpec) {
	if _, exists := g.nodes[u.Name]; !exists {
		g.children[u.Name] = []string{}
		g.parents[u.Name] = []string{}
	}
	g.nodes[u.Name] = u
}

// AddEdge records that child is embedded in host.
func (g *Graph) AddEdge(host, child string) error {
	if _, exists := g.nodes[host]; !exists {
		return fmt.Errorf("host unit %q does not exist", host)
	}
	if _, exists := g.nodes[child]; !exists {
		return fmt.Errorf("unit %q does not exist", child)
	}
	if host == child {
		return fmt.Errorf("self-loop detected: %s", host)
	}
	if !contains(g.children[host], child) {
		g.children[host] = append(g.children[host], child)
	}
	if !contains(g.parents[child], host) {
		g.parents[child] = append(g.parents[child], host)
	}
	return nil
}

// Unit returns a unit by name.
func (g *Graph) Unit(name string) (*UnitSpec, bool) {
	u, ok := g.nodes[name]
	return u, ok
}

// Children returns the units embedded directly in name, sorted.
func (g *Graph) Children(name string) []string {
	out := append([]string(nil), g.children[name]...)
	sort.Strings(out)
	return out
}

// Len returns the number of units.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.children[id] {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, id := range g.sortedNames() {
		if !visited[id] {
			if dfs(id) {
				return true, cyclePath
			}
		}
	}
	return false, nil
}

// Levels groups units by depth: level 0 holds units without a host, level N
// the units embedded in level N-1.
func (g *Graph) Levels() ([][]string, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}

	assigned := make(map[string]int)
	var levelOf func(id string) int
	levelOf = func(id string) int {
		if level, ok := assigned[id]; ok {
			return level
		}
		level := 0
		for _, host := range g.parents[id] {
			if l := levelOf(host) + 1; l > level {
				level = l
			}
		}
		assigned[id] = level
		return level
	}

	maxLevel := -1
	for id := range g.nodes {
		if l := levelOf(id); l > maxLevel {
			maxLevel = l
		}
	}

	levels := make([][]string, maxLevel+1)
	for id, level := range assigned {
		levels[level] = append(levels[level], id)
	}
	for i := range levels {
		sort.Strings(levels[i])
	}
	return levels, nil
}

// Order returns every unit, hosts before the units they embed, sorted by
// name within a level.
func (g *Graph) Order() ([]string, error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(g.nodes))
	for _, level := range levels {
		out = append(out, level...)
	}
	return out, nil
}

// Ancestors returns the hosts of name up to the root, nearest first.
func (g *Graph) Ancestors(name string) []string {
	var out []string
	seen := map[string]bool{name: true}
	for curr := name; ; {
		hosts := g.parents[curr]
		if len(hosts) == 0 || seen[hosts[0]] {
			return out
		}
		curr = hosts[0]
		seen[curr] = true
		out = append(out, curr)
	}
}

func (g *Graph) sortedNames() []string {
	names := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		names = append(names, id)
	}
	sort.Strings(names)
	return names
}

// contains checks if a slice contains a string.
func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
