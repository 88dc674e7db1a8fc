package engine

// TallyVotes maps every seated player number to the count of ballots
// naming them, defaulting to 0. Ties are left to the display layer;
// this only supplies counts.
func TallyVotes(s Session) map[int]int {
	results := make(map[int]int, s.TotalPlayers)
	for n := 1; n <= s.TotalPlayers; n++ {
		results[n] = 0
	}
	for _, ballot := range s.Votes {
		for _, accused := range ballot {
			if _, ok := results[accused]; ok {
				results[accused]++
			}
		}
	}
	return results
}
