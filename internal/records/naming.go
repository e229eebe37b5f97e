package records

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	suffixRandomMin = 100000
	suffixRandomMax = 999999
)

// TicketNamer builds ticket channel names of the form reason-<digits>. The
// digits are the current unix time plus a random value in [100000, 999999].
type TicketNamer struct {
	Now    func() time.Time
	Random func() int64
}

// Name returns a candidate channel name for reason.
func (n TicketNamer) Name(reason string) string {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	random := defaultSuffixRandom
	if n.Random != nil {
		random = n.Random
	}
	return reason + "-" + strconv.FormatInt(now().Unix()+random(), 10)
}

func defaultSuffixRandom() int64 {
	return suffixRandomMin + rand.Int64N(suffixRandomMax-suffixRandomMin+1)
}

// TaskChannelName returns creator-N using the platform's channel name rules:
// lowercase, spaces become dashes, other punctuation is dropped.
func TaskChannelName(creatorName string, sequence int) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(creatorName)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteByte('-')
		}
	}
	base := strings.Trim(b.String(), "-")
	if base == "" {
		base = "task"
	}
	return base + "-" + strconv.Itoa(sequence)
}

// ReasonLabel turns a reason key such as account_issues into "Account Issues".
func ReasonLabel(reason string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(reason, "_", " "))
}
