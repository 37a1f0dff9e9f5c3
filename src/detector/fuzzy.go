package detector

// damerauLevenshtein computes the restricted Damerau-Levenshtein edit
// distance (insertions, deletions, substitutions, adjacent transpositions)
// between a and b. No pack example implements string-edit distance; this is
// the one piece of the detector written directly against the stdlib, per
// DESIGN.md's justification for §4.2.e's fuzzy-vocabulary rule.
func damerauLevenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	d := make([][]int, la+1)
	for i := range d {
		d[i] = make([]int, lb+1)
		d[i][0] = i
	}
	for j := 0; j <= lb; j++ {
		d[0][j] = j
	}

	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := d[i-1][j] + 1
			ins := d[i][j-1] + 1
			sub := d[i-1][j-1] + cost
			best := del
			if ins < best {
				best = ins
			}
			if sub < best {
				best = sub
			}
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				if t := d[i-2][j-2] + cost; t < best {
					best = t
				}
			}
			d[i][j] = best
		}
	}
	return d[la][lb]
}

// similarity normalizes edit distance into §4.2.e's [0,1] score: 1 means
// identical, 0 means nothing in common relative to the longer word.
func similarity(a, b string) float64 {
	dist := damerauLevenshtein(a, b)
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(dist)/float64(maxLen)
}

// closestVocabularyWord finds the vocabulary entry closest to word and
// reports whether it clears the "whichever is looser" bar from §4.2.e:
// similarity >= 0.7 OR edit distance <= 2.
func closestVocabularyWord(word string, vocabulary []string) (best string, sim float64, ok bool) {
	bestDist := -1
	for _, candidate := range vocabulary {
		if candidate == word {
			continue
		}
		dist := damerauLevenshtein(word, candidate)
		s := similarity(word, candidate)
		if bestDist == -1 || dist < bestDist {
			bestDist = dist
			best = candidate
			sim = s
		}
	}
	if bestDist == -1 {
		return "", 0, false
	}
	if sim >= 0.7 || bestDist <= 2 {
		return best, sim, true
	}
	return "", 0, false
}
