package eval

// SequenceRatio is a Ratcliff/Obershelp similarity between the normalized
// strings: twice the total length of recursively matched blocks over the
// combined length. Finer than token-set overlap when phrasing differs only
// in word order or inflection. 0.0 when either normalized string is empty.
func SequenceRatio(prediction, reference string) float64 {
	a := []rune(Normalize(prediction))
	b := []rune(Normalize(reference))
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	matched := matchingBlocks(a, b)
	return 2 * float64(matched) / float64(len(a)+len(b))
}

// matchingBlocks returns the total length of matched characters: the longest
// common substring, then recursion on the pieces left of and right of it.
func matchingBlocks(a, b []rune) int {
	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingBlocks(a[:ai], b[:bi])
	total += matchingBlocks(a[ai+size:], b[bi+size:])
	return total
}

// longestMatch finds the longest common substring via the classic DP over
// suffix lengths. Earliest match in a, then in b, wins ties, which keeps the
// recursion deterministic.
func longestMatch(a, b []rune) (ai, bi, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > size {
					size = cur[j]
					ai = i - size
					bi = j - size
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return ai, bi, size
}
