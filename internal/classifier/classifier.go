package classifier

import "strings"

// Keywords holds the three maintained phrase lists driving classification.
// They are tuned empirically against live portal data and are loaded from
// configuration rather than hard-coded, so operators can edit them without
// a rebuild.
type Keywords struct {
	Exclude             []string `yaml:"exclude"`
	BoardMeetingResults []string `yaml:"boardMeetingResults"`
	Financial           []string `yaml:"financial"`
}

// Classifier decides whether a filing is a financial disclosure or
// administrative noise. It is a pure function of (category, headline);
// matching is case-insensitive substring containment throughout.
type Classifier struct {
	exclude      []string
	boardMeeting []string
	financial    []string
}

// New builds a classifier from the provided keyword lists. Phrases are
// lowercased once here so classification itself stays allocation-light.
func New(kw Keywords) *Classifier {
	return &Classifier{
		exclude:      lowerAll(kw.Exclude),
		boardMeeting: lowerAll(kw.BoardMeetingResults),
		financial:    lowerAll(kw.Financial),
	}
}

// IsFinancial reports whether the filing should be tracked and downloaded.
//
// Exclusion wins unconditionally: noise phrases like "schedule of earnings
// call" appear inside otherwise result-flavored headlines, so they are
// checked before any category rule. The Result category is then allowed by
// default, except a bare "outcome of board meeting" headline carrying no
// results language. Board Meeting and Company Update categories require a
// positive keyword hit; every other category is rejected.
func (c *Classifier) IsFinancial(category, headline string) bool {
	category = strings.ToLower(category)
	headline = strings.ToLower(headline)

	if containsAny(headline, c.exclude) {
		return false
	}

	if strings.Contains(category, "result") {
		if strings.Contains(headline, "outcome of board meeting") && !containsAny(headline, c.boardMeeting) {
			return false
		}
		return true
	}

	if strings.Contains(category, "board meeting") {
		return containsAny(headline, c.boardMeeting)
	}

	if strings.Contains(category, "company update") {
		return containsAny(headline, c.financial)
	}

	return false
}

func containsAny(s string, phrases []string) bool {
	for _, phrase := range phrases {
		if phrase != "" && strings.Contains(s, phrase) {
			return true
		}
	}
	return false
}

func lowerAll(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		out = append(out, strings.ToLower(strings.TrimSpace(phrase)))
	}
	return out
}

// DefaultKeywords returns the built-in phrase lists used when configuration
// does not override them.
func DefaultKeywords() Keywords {
	return Keywords{
		Exclude: []string{
			"schedule of analyst",
			"schedule of board meeting",
			"board meeting is scheduled",
			"meeting of the board of directors of the company is scheduled",
			"audio recording",
			"audio/video recording",
			"kanto local finance bureau",
			"newspaper advertisement",
			"publication of newspaper",
			"informed the exchange about copy of newspaper",
			"dial-in details",
			"host an earnings call",
			"host a conference call",
			"schedule of earnings call",
			"earnings call in relation",
			"enclosing herewith the schedule",
			"will be participating",
			"participated in the institutional",
			"retail store",
			"center of excellence",
			"5g coverage",
			"partnership",
			"collaboration",
			"strategic",
			"launches",
			"launch of",
			"opens new",
			"selects tcs",
			"taps tcs",
			"deepen",
			"unveil",
			"forge",
			"hackathon",
			"re-appointment",
			"reappointment",
			"presentation to be made at",
			"intimation attached",
			"in continuation of our letter",
			"have been uploaded on",
			"uploaded on the website",
			"uploaded on bse",
			"have been uploaded",
		},
		BoardMeetingResults: []string{
			"unaudited financial results",
			"audited financial results",
			"standalone and consolidated",
			"financial results and",
			"results for the quarter",
			"results for quarter",
		},
		Financial: []string{
			"unaudited financial results",
			"audited financial results",
			"quarterly results",
			"annual report",
			"investor presentation on",
			"press release on financial results",
			"press release w.r.t. financial results",
			"media statement and investor presentation",
			"media statement and presentation on financial",
			"earnings call",
			"transcript of earnings call",
			"transcript of the discussion on the unaudited",
			"performance review",
			"financial results for the quarter",
			"financial results for quarter",
			"results for the quarter",
		},
	}
}
