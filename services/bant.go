package services

import (
	"fmt"

	"github.com/gofiber/fiber/v2/log"
)

// BANT enum values accepted by ScoreBANT
const (
	AuthorityLow       = "low"
	AuthorityMedium    = "medium"
	AuthorityHigh      = "high"
	AuthorityExecutive = "executive"

	NeedLow      = "low"
	NeedMedium   = "medium"
	NeedHigh     = "high"
	NeedCritical = "critical"

	TimelineSixMonths   = "6months"
	TimelineThreeMonths = "3months"
	TimelineOneMonth    = "1month"
	TimelineImmediate   = "immediate"
)

// BANTInput is the raw widget questionnaire answers
type BANTInput struct {
	Budget    int    `json:"budget" validate:"min=0"`
	Authority string `json:"authority" validate:"required,oneof=low medium high executive"`
	Need      string `json:"need" validate:"required,oneof=low medium high critical"`
	Timeline  string `json:"timeline" validate:"required,oneof=6months 3months 1month immediate"`
}

// BANTBreakdown is the per-dimension score contribution
type BANTBreakdown struct {
	Budget    int `json:"budget"`
	Authority int `json:"authority"`
	Need      int `json:"need"`
	Timeline  int `json:"timeline"`
}

// BANTDetails are the human-readable labels for each answer
type BANTDetails struct {
	BudgetRange         string `json:"budget_range"`
	AuthorityLevel      string `json:"authority_level"`
	NeedUrgency         string `json:"need_urgency"`
	TimelineExpectation string `json:"timeline_expectation"`
}

// BANTScore is the complete deterministic qualification result
type BANTScore struct {
	Score          int           `json:"score"`
	Category       string        `json:"category"`
	Recommendation string        `json:"recommendation"`
	Breakdown      BANTBreakdown `json:"breakdown"`
	Details        BANTDetails   `json:"details"`
}

// ScoreBANT computes a deterministic 0-100 lead score from the four BANT
// dimensions. Each dimension contributes up to 25 points. The same input
// always yields the same output; no AI involved.
func ScoreBANT(in BANTInput) BANTScore {
	breakdown := BANTBreakdown{
		Budget:    budgetScore(in.Budget),
		Authority: authorityScore(in.Authority),
		Need:      needScore(in.Need),
		Timeline:  timelineScore(in.Timeline),
	}
	total := breakdown.Budget + breakdown.Authority + breakdown.Need + breakdown.Timeline

	result := BANTScore{
		Score:          total,
		Category:       leadCategory(total),
		Recommendation: recommendation(total),
		Breakdown:      breakdown,
		Details: BANTDetails{
			BudgetRange:         budgetRange(in.Budget),
			AuthorityLevel:      authorityLevel(in.Authority),
			NeedUrgency:         needUrgency(in.Need),
			TimelineExpectation: timelineExpectation(in.Timeline),
		},
	}

	log.Infof("lead qualified via BANT: budget=%d authority=%s need=%s timeline=%s score=%d category=%s",
		in.Budget, in.Authority, in.Need, in.Timeline, total, result.Category)

	return result
}

func budgetScore(budget int) int {
	switch {
	case budget >= 200000:
		return 25
	case budget >= 100000:
		return 20
	case budget >= 50000:
		return 15
	case budget >= 10000:
		return 10
	default:
		return 5
	}
}

func authorityScore(authority string) int {
	switch authority {
	case AuthorityExecutive:
		return 25
	case AuthorityHigh:
		return 20
	case AuthorityMedium:
		return 15
	case AuthorityLow:
		return 10
	default:
		return 5
	}
}

func needScore(need string) int {
	switch need {
	case NeedCritical:
		return 25
	case NeedHigh:
		return 20
	case NeedMedium:
		return 15
	case NeedLow:
		return 10
	default:
		return 5
	}
}

func timelineScore(timeline string) int {
	switch timeline {
	case TimelineImmediate:
		return 25
	case TimelineOneMonth:
		return 20
	case TimelineThreeMonths:
		return 15
	case TimelineSixMonths:
		return 10
	default:
		return 5
	}
}

func leadCategory(score int) string {
	switch {
	case score >= 75:
		return "Hot"
	case score >= 50:
		return "Warm"
	default:
		return "Cold"
	}
}

func recommendation(score int) string {
	switch {
	case score >= 75:
		return "Lead prioritaire - Suivi commercial immédiat recommandé. Contact dans les 2 heures."
	case score >= 50:
		return "Lead qualifié - Suivi dans les 24 heures. Planifier un appel de découverte."
	default:
		return "Lead à nurturing - Intégrer dans une campagne d'éducation marketing. Suivi hebdomadaire."
	}
}

func budgetRange(budget int) string {
	switch {
	case budget >= 200000:
		return "Premium (200k€+)"
	case budget >= 100000:
		return "Entreprise (100k-200k€)"
	case budget >= 50000:
		return "Business (50k-100k€)"
	case budget >= 10000:
		return "Standard (10k-50k€)"
	default:
		return "Starter (<10k€)"
	}
}

func authorityLevel(authority string) string {
	switch authority {
	case AuthorityExecutive:
		return "C-Level Executive"
	case AuthorityHigh:
		return "Decision Maker"
	case AuthorityMedium:
		return "Manager/Supervisor"
	case AuthorityLow:
		return "Influencer/User"
	default:
		return "Unknown"
	}
}

func needUrgency(need string) string {
	switch need {
	case NeedCritical:
		return "Critical Business Issue"
	case NeedHigh:
		return "Urgent Need"
	case NeedMedium:
		return "Evaluating Solutions"
	case NeedLow:
		return "Exploring Options"
	default:
		return "Unknown"
	}
}

func timelineExpectation(timeline string) string {
	switch timeline {
	case TimelineImmediate:
		return "Immediate Implementation"
	case TimelineOneMonth:
		return "1-3 months"
	case TimelineThreeMonths:
		return "3-6 months"
	case TimelineSixMonths:
		return "6+ months"
	default:
		return "Undefined"
	}
}

// String renders the category with its score for log lines
func (s BANTScore) String() string {
	return fmt.Sprintf("%s (%d/100)", s.Category, s.Score)
}
