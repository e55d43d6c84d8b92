package cbz

// naturalLess compares page names so that embedded digit runs order
// numerically: "page2.jpg" sorts before "page10.jpg".
func naturalLess(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			// Compare whole digit runs, ignoring leading zeros.
			ia, na := digitRun(a, i)
			ib, nb := digitRun(b, j)
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			i, j = ia+len(na), ib+len(nb)
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(a)-i < len(b)-j
}

// digitRun returns the start of the digit run at pos after leading zeros
// and the run without them (empty means the run was all zeros).
func digitRun(s string, pos int) (start int, run string) {
	end := pos
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	start = pos
	for start < end-1 && s[start] == '0' {
		start++
	}
	return start, s[start:end]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
