package stringutil

import "math"

// lcsLength returns the length of the longest common subsequence of a and b.
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// IndelDistance is the Levenshtein distance allowing only insertions and deletions
// (a substitution costs 2).
func IndelDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	return len(ra) + len(rb) - 2*lcsLength(ra, rb)
}

func ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	return 100 * float64(2*lcsLength(a, b)) / float64(total)
}

// Ratio is the normalized indel similarity of a and b in [0,100].
func Ratio(a, b string) int {
	return int(math.Round(ratio([]rune(a), []rune(b))))
}

// PartialRatio scores the best alignment of the shorter string against every
// equal-length window of the longer one, in [0,100]. Either side empty scores 0.
func PartialRatio(a, b string) int {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}

	best := 0.0
	for start := 0; start+len(short) <= len(long); start++ {
		score := ratio(short, long[start:start+len(short)])
		if score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return int(math.Round(best))
}

// OSADistance is the optimal string alignment distance (Damerau-Levenshtein
// restricted to non-overlapping adjacent transpositions). It stops early and
// returns max+1 once the distance is known to exceed max; max < 0 disables the cutoff.
func OSADistance(a, b string, maxDist int) int {
	ra, rb := []rune(a), []rune(b)
	if maxDist >= 0 && abs(len(ra)-len(rb)) > maxDist {
		return maxDist + 1
	}

	rows := make([][]int, len(ra)+1)
	for i := range rows {
		rows[i] = make([]int, len(rb)+1)
		rows[i][0] = i
	}
	for j := range rows[0] {
		rows[0][j] = j
	}

	for i := 1; i <= len(ra); i++ {
		rowMin := rows[i][0]
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d := min(rows[i-1][j]+1, rows[i][j-1]+1, rows[i-1][j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				d = min(d, rows[i-2][j-2]+1)
			}
			rows[i][j] = d
			rowMin = min(rowMin, d)
		}
		if maxDist >= 0 && rowMin > maxDist {
			return maxDist + 1
		}
	}
	return rows[len(ra)][len(rb)]
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
