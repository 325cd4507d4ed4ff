package antiraid

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	digitRunRE = regexp.MustCompile(`\d+`)
	alnumRE    = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
)

// usernamePatternScore rates how bot-like the tracked usernames look,
// in [0,1]. Four additive sub-signals: sequential numbers embedded in
// names, random-looking alphanumeric names of 8+ chars, and shared
// 4-char prefixes or suffixes. Requires at least 5 named users;
// anything less scores 0.
func usernamePatternScore(events []JoinEvent) float64 {
	if len(events) < 5 {
		return 0
	}

	usernames := make([]string, 0, len(events))
	for _, e := range events {
		if e.Username != "" {
			usernames = append(usernames, e.Username)
		}
	}
	if len(usernames) < 5 {
		return 0
	}

	var numbers []int
	randomish := 0
	prefixes := make(map[string]int)
	suffixes := make(map[string]int)

	for _, name := range usernames {
		for _, run := range digitRunRE.FindAllString(name, -1) {
			if n, err := strconv.Atoi(run); err == nil {
				numbers = append(numbers, n)
			}
		}
		// Character counts, not byte counts: a Cyrillic or CJK name must
		// not be split mid-rune when extracting affixes.
		runes := []rune(name)
		if len(runes) >= 8 && alnumRE.MatchString(name) {
			randomish++
		}
		if len(runes) >= 4 {
			prefixes[strings.ToLower(string(runes[:4]))]++
			suffixes[strings.ToLower(string(runes[len(runes)-4:]))]++
		}
	}

	// Adjacent sorted integers with difference 1; needs at least 3
	// numbers and 2 consecutive pairs to register at all.
	sequential := 0
	if len(numbers) >= 3 {
		sort.Ints(numbers)
		pairs := 0
		for i := 0; i < len(numbers)-1; i++ {
			if numbers[i+1]-numbers[i] == 1 {
				pairs++
			}
		}
		if pairs >= 2 {
			sequential = pairs
		}
	}

	maxPrefix := maxCount(prefixes)
	maxSuffix := maxCount(suffixes)

	score := math.Min(float64(sequential)/5, 0.3)
	score += math.Min(float64(randomish)/10, 0.3)
	if maxPrefix >= 3 {
		score += math.Min(float64(maxPrefix)/5, 0.2)
	}
	if maxSuffix >= 3 {
		score += math.Min(float64(maxSuffix)/5, 0.2)
	}
	return math.Min(score, 1.0)
}

func maxCount(counts map[string]int) int {
	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	return max
}
