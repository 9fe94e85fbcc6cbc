package workspace

import "sort"

// FindSimilarPaths returns up to 3 indexed script paths close to target
// by Levenshtein distance, for "did you mean?" diagnostics — candidates
// whose distance is at or beyond half of target's rune length (rounded
// down) are dropped as too dissimilar to be a useful suggestion.
func (w *Workspace) FindSimilarPaths(target string) []string {
	type candidate struct {
		path string
		dist int
	}
	var candidates []candidate
	for pair := w.files.Oldest(); pair != nil; pair = pair.Next() {
		candidates = append(candidates, candidate{pair.Key, levenshtein(target, pair.Key)})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })

	threshold := len([]rune(target)) / 2
	var out []string
	for i, c := range candidates {
		if i >= 3 {
			break
		}
		if c.dist >= threshold {
			continue
		}
		out = append(out, c.path)
	}
	return out
}

// FindSimilarMethods returns up to 3 method names on scriptPath (including
// inherited ones) close to target by Levenshtein distance.
func (w *Workspace) FindSimilarMethods(scriptPath, target string) []string {
	type candidate struct {
		name string
		dist int
	}
	var candidates []candidate
	for _, m := range w.GetAllMembers(scriptPath) {
		if m.MemberType != MemberMethod {
			continue
		}
		candidates = append(candidates, candidate{m.Name, levenshtein(target, m.Name)})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })

	threshold := len([]rune(target)) / 2
	var out []string
	for i, c := range candidates {
		if i >= 3 {
			break
		}
		if c.dist >= threshold {
			continue
		}
		out = append(out, c.name)
	}
	return out
}

// levenshtein computes the edit distance between two strings, counted in
// runes rather than bytes so non-ASCII script/method names still compare
// sensibly.
func levenshtein(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	len1, len2 := len(r1), len(r2)
	matrix := make([][]int, len1+1)
	for i := range matrix {
		matrix[i] = make([]int, len2+1)
		matrix[i][0] = i
	}
	for j := 0; j <= len2; j++ {
		matrix[0][j] = j
	}
	for i := 1; i <= len1; i++ {
		for j := 1; j <= len2; j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			del := matrix[i-1][j] + 1
			ins := matrix[i][j-1] + 1
			sub := matrix[i-1][j-1] + cost
			matrix[i][j] = minOf(del, minOf(ins, sub))
		}
	}
	return matrix[len1][len2]
}

func minOf(a, b int) int {
	if a < b {
		return a
	}
	return b
}
