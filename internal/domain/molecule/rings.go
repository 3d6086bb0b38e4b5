package molecule

import (
	"slices"
)

// perceiveRings marks ring bonds (bonds whose endpoints stay connected when the
// bond is removed) and collects the smallest ring through each ring bond.
func (m *Molecule) perceiveRings() {
	m.ringBond = make([]bool, len(m.bonds))
	m.ringAtom = make([]bool, len(m.atoms))
	seen := make(map[string]struct{})

	for i, b := range m.bonds {
		path := m.shortestPath(b.From, b.To, i)
		if path == nil {
			continue
		}
		m.ringBond[i] = true
		for _, a := range path {
			m.ringAtom[a] = true
		}
		key := ringKey(path)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		m.rings = append(m.rings, path)
	}
	slices.SortStableFunc(m.rings, func(a, b []int) int { return len(a) - len(b) })
}

// shortestPath runs a BFS from src to dst that may not use bond skip.  It
// returns the atom path src..dst or nil when dst is unreachable.
func (m *Molecule) shortestPath(src, dst, skip int) []int {
	prev := make([]int, len(m.atoms))
	for i := range prev {
		prev[i] = -1
	}
	prev[src] = src
	queue := []int{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == dst {
			break
		}
		for _, n := range m.adj[cur] {
			if n.bond == skip || prev[n.atom] >= 0 {
				continue
			}
			prev[n.atom] = cur
			queue = append(queue, n.atom)
		}
	}
	if prev[dst] < 0 {
		return nil
	}
	var path []int
	for a := dst; a != src; a = prev[a] {
		path = append(path, a)
	}
	path = append(path, src)
	slices.Reverse(path)
	return path
}

func ringKey(ring []int) string {
	sorted := slices.Clone(ring)
	slices.Sort(sorted)
	b := make([]byte, 0, len(sorted)*3)
	for _, a := range sorted {
		b = append(b, byte(a>>8), byte(a), ',')
	}
	return string(b)
}

// perceiveAromaticity flags atoms and bonds given as aromatic in the input, and
// additionally Kekulé rings: six-membered C/N rings with three alternating
// double bonds, and five-membered rings with two ring double bonds whose
// remaining atom is N, O or S.
func (m *Molecule) perceiveAromaticity() {
	m.aromaticAtom = make([]bool, len(m.atoms))
	m.aromaticBond = make([]bool, len(m.bonds))
	for i, b := range m.bonds {
		if b.Order == BondAromatic {
			m.aromaticBond[i] = true
			m.aromaticAtom[b.From] = true
			m.aromaticAtom[b.To] = true
		}
	}

	for _, ring := range m.rings {
		if m.isKekuleAromatic(ring) {
			for k, a := range ring {
				m.aromaticAtom[a] = true
				bi, _ := m.BondBetween(a, ring[(k+1)%len(ring)])
				m.aromaticBond[bi] = true
			}
		}
	}
}

func (m *Molecule) isKekuleAromatic(ring []int) bool {
	n := len(ring)
	if n != 5 && n != 6 {
		return false
	}
	doubles := 0
	hasDouble := make([]bool, n)
	for k := 0; k < n; k++ {
		bi, ok := m.BondBetween(ring[k], ring[(k+1)%n])
		if !ok {
			return false
		}
		switch m.bonds[bi].Order {
		case BondDouble, BondAromatic:
			if hasDouble[k] || hasDouble[(k+1)%n] {
				return false
			}
			doubles++
			hasDouble[k] = true
			hasDouble[(k+1)%n] = true
		case BondTriple:
			return false
		}
	}

	switch n {
	case 6:
		if doubles != 3 {
			return false
		}
		for _, a := range ring {
			if e := m.atoms[a].Element; e != "C" && e != "N" {
				return false
			}
		}
		return true
	default:
		if doubles != 2 {
			return false
		}
		for k, a := range ring {
			if hasDouble[k] {
				continue
			}
			switch m.atoms[a].Element {
			case "N", "O", "S":
				return true
			}
		}
		return false
	}
}

// RingSystems groups ring atoms connected through ring bonds.  Systems are
// ordered by their smallest atom and atoms are ascending within a system.
func (m *Molecule) RingSystems() [][]int {
	label := make([]int, len(m.atoms))
	for i := range label {
		label[i] = -1
	}
	var systems [][]int
	for start := range m.atoms {
		if !m.ringAtom[start] || label[start] >= 0 {
			continue
		}
		id := len(systems)
		sys := []int{start}
		label[start] = id
		for q := 0; q < len(sys); q++ {
			for _, n := range m.adj[sys[q]] {
				if m.ringBond[n.bond] && label[n.atom] < 0 {
					label[n.atom] = id
					sys = append(sys, n.atom)
				}
			}
		}
		slices.Sort(sys)
		systems = append(systems, sys)
	}
	return systems
}
