package entities

import "time"

type BadgeCategory string
type BadgeRarity string

const (
	BadgeCategoryMilestone BadgeCategory = "milestone"
	BadgeCategorySocial    BadgeCategory = "social"

	BadgeRarityCommon BadgeRarity = "common"
	BadgeRarityRare   BadgeRarity = "rare"
)

const (
	BadgeSlugFirstProject         = "first-project"
	BadgeSlugFirstChallengeSubmit = "first-challenge-submit"
	BadgeSlugJuniorStar           = "junior-star"
)

type Badge struct {
	BadgeID     string
	Slug        string
	Name        string
	Description string
	Icon        string
	Requirement string
	Category    BadgeCategory
	Rarity      BadgeRarity
	CreatedAt   time.Time
}

type BadgeAward struct {
	ProfileID string
	BadgeID   string
	BadgeSlug string
	UserID    string
	AwardedAt time.Time
}

// DefaultBadgeCatalog lists the badges the achievement rules award.
func DefaultBadgeCatalog() []Badge {
	return []Badge{
		{
			Slug:        BadgeSlugFirstProject,
			Name:        "First Project",
			Description: "Created your very first project! This is just the beginning of your coding journey.",
			Icon:        "🎯",
			Requirement: "Create your first project",
			Category:    BadgeCategoryMilestone,
			Rarity:      BadgeRarityCommon,
		},
		{
			Slug:        BadgeSlugFirstChallengeSubmit,
			Name:        "First Challenge Submit",
			Description: "Completed your first challenge submission! You're taking your skills to the next level.",
			Icon:        "🏆",
			Requirement: "Submit to your first challenge",
			Category:    BadgeCategoryMilestone,
			Rarity:      BadgeRarityCommon,
		},
		{
			Slug:        BadgeSlugJuniorStar,
			Name:        "Junior Star",
			Description: "One of your projects reached 3 likes from the community! People are noticing your work.",
			Icon:        "⭐",
			Requirement: "Get 3 likes on any project",
			Category:    BadgeCategorySocial,
			Rarity:      BadgeRarityRare,
		},
	}
}
