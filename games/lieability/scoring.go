package lieability

// tally maps option index to voter ids in join order.
type tally map[int][]string

func countVotes(r *roster, opts []Option) tally {
	t := make(tally)

	for _, p := range r.all() {
		if p.selected && p.guess >= 0 && p.guess < len(opts) {
			t[p.guess] = append(t[p.guess], p.id)
		}
	}

	return t
}

// scoreQuestion credits authors of voted lies and finders of the truth. Every
// author of a merged lie gets the full vote count. Filler lies score nothing.
func scoreQuestion(r *roster, opts []Option, votes tally, pts RoundPoints) {
	for i, opt := range opts {
		n := len(votes[i])

		switch opt.Kind {
		case OptionTruth:
			for _, id := range votes[i] {
				if p, ok := r.get(id); ok {
					p.points += pts.Truth
					p.stats.CorrectGuesses++
				}
			}

		case OptionLie:
			for _, id := range opt.Authors {
				p, ok := r.get(id)
				if !ok {
					continue
				}

				p.fooledLast = n
				p.points += n * pts.Fool
				p.stats.PlayersFooled += n
			}
		}
	}
}
