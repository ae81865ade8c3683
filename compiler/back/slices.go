package back

// sliceSet sets s[i] = x growing s as needed.
func sliceSet[S ~[]E, E any, I interface{ ~int }](s S, i I, x E) S {
	var z E

	for int(i) >= len(s) {
		s = append(s, z)
	}

	s[i] = x

	return s
}

// sliceGet returns s[i] or the zero value if i is out of range.
func sliceGet[S ~[]E, E any, I interface{ ~int }](s S, i I) (x E) {
	if int(i) < 0 || int(i) >= len(s) {
		return x
	}

	return s[i]
}

func align16(x int) int {
	return (x + 15) &^ 15
}
